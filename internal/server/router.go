package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/warmofmeme/memeboard/internal/auth"
	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"github.com/warmofmeme/memeboard/internal/services"
	"github.com/warmofmeme/memeboard/internal/store"
	"go.uber.org/zap"
)

const usernameContextKey = "memeboard_username"

var (
	errMissingAuthService   = errors.New("auth service dependency required")
	errMissingMemeService   = errors.New("meme service dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionTokenManager mints and checks the bearer tokens handed out at login.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, claims auth.SessionClaims) (string, int64, error)
	ValidateToken(token string) (auth.SessionClaims, error)
}

// Dependencies wires the domain services into the HTTP layer.
type Dependencies struct {
	AuthService        *services.AuthService
	MemeService        *services.MemeService
	ArenaService       *services.ArenaService
	AchievementService *services.AchievementService
	LeaderboardService *services.LeaderboardService
	ReportService      *services.ReportService
	UploadService      *services.UploadService
	TokenManager       SessionTokenManager
	Logger             *zap.Logger
}

// NewHTTPHandler assembles the gin router over the domain services.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.AuthService == nil {
		return nil, errMissingAuthService
	}
	if deps.MemeService == nil {
		return nil, errMissingMemeService
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.ArenaService == nil || deps.AchievementService == nil ||
		deps.LeaderboardService == nil || deps.ReportService == nil || deps.UploadService == nil {
		return nil, errors.New("all service dependencies required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		authService:        deps.AuthService,
		memeService:        deps.MemeService,
		arenaService:       deps.ArenaService,
		achievementService: deps.AchievementService,
		leaderboardService: deps.LeaderboardService,
		reportService:      deps.ReportService,
		uploadService:      deps.UploadService,
		tokens:             deps.TokenManager,
		logger:             logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/memes", handler.handleListMemes)
	router.GET("/memes/trending", handler.handleTrending)
	router.GET("/memes/:id", handler.handleGetMeme)
	router.GET("/memes/:id/comments", handler.handleListComments)
	router.GET("/leaderboard", handler.handleLeaderboard)
	router.GET("/arenas", handler.handleListArenas)
	router.GET("/achievements", handler.handleListAchievements)
	router.GET("/reports/categories", handler.handleCategoryReport)
	router.GET("/reports/top-uploaders", handler.handleTopUploaders)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/auth/me", handler.handleMe)
	protected.PUT("/profile", handler.handleUpdateProfile)
	protected.POST("/memes", handler.handleCreateMeme)
	protected.DELETE("/memes/:id", handler.handleDeleteMeme)
	protected.POST("/memes/:id/vote", handler.handleVote)
	protected.GET("/memes/:id/vote", handler.handleHasVoted)
	protected.POST("/memes/:id/comments", handler.handleAddComment)
	protected.POST("/memes/:id/comments/enable", handler.handleEnableComments)
	protected.POST("/memes/:id/comments/disable", handler.handleDisableComments)
	protected.POST("/uploads/image", handler.handleUploadImage)
	protected.POST("/achievements/check", handler.handleCheckUnlocks)
	protected.POST("/arenas", handler.handleCreateArena)
	protected.PUT("/arenas/:id", handler.handleUpdateArena)
	protected.POST("/arenas/:id/deactivate", handler.handleDeactivateArena)
	protected.POST("/achievements", handler.handleCreateAchievement)
	protected.PUT("/achievements/:id", handler.handleUpdateAchievement)
	protected.DELETE("/achievements/:id", handler.handleDeleteAchievement)

	return router, nil
}

type httpHandler struct {
	authService        *services.AuthService
	memeService        *services.MemeService
	arenaService       *services.ArenaService
	achievementService *services.AchievementService
	leaderboardService *services.LeaderboardService
	reportService      *services.ReportService
	uploadService      *services.UploadService
	tokens             SessionTokenManager
	logger             *zap.Logger
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	TokenType   string      `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request services.RegisterInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSession(c, user)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		// An unknown username responds the same as a wrong password.
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.respondError(c, err)
		return
	}
	h.respondSession(c, user)
}

func (h *httpHandler) respondSession(c *gin.Context, user *models.User) {
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), auth.SessionClaims{
		Username: user.Username,
		Role:     string(user.Role),
	})
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, sessionResponsePayload{
		User:        *user,
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMe(c *gin.Context) {
	user, ok := h.authService.CurrentUser()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

type profilePayload struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Title    *string `json:"title"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	current, ok := h.authService.CurrentUser()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request profilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.authService.UpdateProfile(c.Request.Context(), current.ID, models.UserPatch{
		Username: request.Username,
		Email:    request.Email,
		Password: request.Password,
		Title:    request.Title,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleListMemes(c *gin.Context) {
	var (
		memes []models.Meme
		err   error
	)
	switch {
	case c.Query("category") != "":
		memes, err = h.memeService.MemesByCategory(c.Query("category"))
	case c.Query("user") != "":
		memes, err = h.memeService.MemesByUser(c.Query("user"))
	default:
		memes, err = h.memeService.Memes()
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memes": memes})
}

func (h *httpHandler) handleTrending(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}
	memes, err := h.memeService.Trending(limit, repository.TrendingFilter{
		Category:  c.Query("category"),
		TimeRange: c.Query("timeRange"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memes": memes})
}

func (h *httpHandler) handleGetMeme(c *gin.Context) {
	meme, err := h.memeService.Meme(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

func (h *httpHandler) handleCreateMeme(c *gin.Context) {
	var request services.CreateMemeInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	meme, err := h.memeService.CreateMeme(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meme)
}

func (h *httpHandler) handleDeleteMeme(c *gin.Context) {
	if _, err := h.memeService.DeleteMeme(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleVote(c *gin.Context) {
	result, err := h.memeService.VoteMeme(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleHasVoted(c *gin.Context) {
	voted, err := h.memeService.HasVoted(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}

type commentPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	var request commentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	comment, err := h.memeService.AddComment(c.Request.Context(), c.Param("id"), request.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	comments, err := h.memeService.Comments(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *httpHandler) handleEnableComments(c *gin.Context) {
	meme, err := h.memeService.EnableComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

func (h *httpHandler) handleDisableComments(c *gin.Context) {
	meme, err := h.memeService.DisableComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

func (h *httpHandler) handleLeaderboard(c *gin.Context) {
	board, err := h.leaderboardService.Build(repository.TrendingFilter{
		Category:  c.Query("category"),
		TimeRange: c.Query("timeRange"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *httpHandler) handleListArenas(c *gin.Context) {
	var (
		arenas []models.Arena
		err    error
	)
	if c.Query("active") == "true" {
		arenas, err = h.arenaService.ActiveArenas()
	} else {
		arenas, err = h.arenaService.Arenas()
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"arenas": arenas})
}

func (h *httpHandler) handleCreateArena(c *gin.Context) {
	var request services.ArenaInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	arena, err := h.arenaService.CreateArena(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, arena)
}

type arenaPatchPayload struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    *bool      `json:"isActive"`
}

func (h *httpHandler) handleUpdateArena(c *gin.Context) {
	var request arenaPatchPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	arena, err := h.arenaService.UpdateArena(c.Request.Context(), c.Param("id"), models.ArenaPatch{
		Name:        request.Name,
		Description: request.Description,
		StartDate:   request.StartDate,
		EndDate:     request.EndDate,
		IsActive:    request.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, arena)
}

func (h *httpHandler) handleDeactivateArena(c *gin.Context) {
	arena, err := h.arenaService.DeactivateArena(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, arena)
}

func (h *httpHandler) handleListAchievements(c *gin.Context) {
	achievements, err := h.achievementService.Achievements()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

func (h *httpHandler) handleCreateAchievement(c *gin.Context) {
	var request services.AchievementInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	achievement, err := h.achievementService.CreateAchievement(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, achievement)
}

type achievementPatchPayload struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Icon        *string             `json:"icon"`
	Requirement *models.Requirement `json:"requirement"`
	Color       *string             `json:"color"`
	TextColor   *string             `json:"textColor"`
}

func (h *httpHandler) handleUpdateAchievement(c *gin.Context) {
	var request achievementPatchPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	achievement, err := h.achievementService.UpdateAchievement(c.Request.Context(), c.Param("id"), models.AchievementPatch{
		Name:        request.Name,
		Description: request.Description,
		Icon:        request.Icon,
		Requirement: request.Requirement,
		Color:       request.Color,
		TextColor:   request.TextColor,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, achievement)
}

func (h *httpHandler) handleDeleteAchievement(c *gin.Context) {
	if _, err := h.achievementService.DeleteAchievement(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleCheckUnlocks(c *gin.Context) {
	current, ok := h.authService.CurrentUser()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	unlocked, err := h.achievementService.CheckUnlocks(c.Request.Context(), current.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}

func (h *httpHandler) handleCategoryReport(c *gin.Context) {
	report, err := h.reportService.CategoryBreakdown()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *httpHandler) handleTopUploaders(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}
	rows, err := h.reportService.TopUploaders(limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploaders": rows})
}

func (h *httpHandler) handleUploadImage(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, services.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	imageURL, err := h.uploadService.ProcessImage(data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}

// authorizeRequest accepts a bearer token minted at login and checks it
// against the active session. A token for a session that has since logged
// out is rejected.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	current, ok := h.authService.CurrentUser()
	if !ok || current.Username != claims.Username {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(usernameContextKey, claims.Username)
	c.Next()
}

// respondError maps domain error kinds onto HTTP statuses.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": validationErr.Messages})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrCommentsDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": "comments_disabled"})
	case errors.Is(err, services.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCapacityExceeded):
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": "storage_capacity_exceeded"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
