package restapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// SendMessageRequest is the JSON form of POST /send_message.
type SendMessageRequest struct {
	UserID   string `json:"user_id" form:"user_id"`
	UserName string `json:"user_name" form:"user_name"`
	Message  string `json:"message" form:"message"`
	PhotoURL string `json:"photo_url" form:"photo_url"`
}

type SendMessageResponse struct {
	Success           bool        `json:"success"`
	Mode              domain.Mode `json:"mode"`
	MessageID         *int64      `json:"message_id,omitempty"`
	MessageIDs        []int64     `json:"message_ids"`
	TelegramMessageID *int64      `json:"telegram_message_id,omitempty"`
	PhotoURL          string      `json:"photo_url,omitempty"`
	PhotoURLs         []string    `json:"photo_urls,omitempty"`
}

type RegisterDeviceRequest struct {
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	FCMToken  string `json:"fcm_token"`
	APNsToken string `json:"apns_token"`
	Token     string `json:"token"`
	DeviceID  string `json:"device_id"`
}

type HistoryResponse struct {
	Success  bool             `json:"success"`
	Messages []domain.Message `json:"messages"`
}

type CheckDeviceResponse struct {
	Success   bool              `json:"success"`
	UserID    string            `json:"user_id"`
	HasDevice bool              `json:"has_device"`
	Devices   int               `json:"devices"`
	Platforms []domain.Platform `json:"platforms"`
}

type SupportModeRequest struct {
	Mode string `json:"mode"`
}

type SupportModeResponse struct {
	Success           bool        `json:"success"`
	UserID            string      `json:"user_id"`
	Mode              domain.Mode `json:"mode"`
	LastUserMessageAt *time.Time  `json:"last_user_message_at,omitempty"`
	SwitchedAt        *time.Time  `json:"switched_at,omitempty"`
	TimeoutSeconds    int64       `json:"timeout_seconds"`
}

// Health godoc
// @Summary Liveness check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) Health(c *gin.Context) {
	if s.svc.Ping != nil {
		if err := s.svc.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SendMessage godoc
// @Summary Relay a user message to support
// @Description Accepts multipart/form-data (photo parts) or JSON (photo_url).
// @Tags messages
// @Accept json,mpfd
// @Produce json
// @Param request body SendMessageRequest false "JSON request"
// @Success 200 {object} SendMessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /send_message [post]
func (s *Server) SendMessage(c *gin.Context) {
	var (
		req    SendMessageRequest
		photos []*domain.Photo
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err = c.ShouldBind(&req); err != nil {
			writeError(c, domain.Invalidf("malformed form: %v", err))
			return
		}
		if photos, err = s.readPhotos(c); err != nil {
			writeError(c, err)
			return
		}
	} else if err = c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Invalidf("malformed request: %v", err))
		return
	}
	if url := strings.TrimSpace(req.PhotoURL); url != "" && len(photos) == 0 {
		photos = append(photos, &domain.Photo{URL: url})
	}

	outcome, err := s.svc.Relay.HandleUserMessage(c.Request.Context(), core.Inbound{
		UserID:   req.UserID,
		UserName: strings.TrimSpace(req.UserName),
		Text:     req.Message,
		Photos:   photos,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := SendMessageResponse{
		Success:           true,
		Mode:              outcome.Mode,
		MessageIDs:        outcome.MessageIDs(),
		TelegramMessageID: outcome.ExternalMessageID,
		PhotoURLs:         outcome.PhotoURLs,
	}
	if outcome.UserMessage != nil {
		resp.MessageID = &outcome.UserMessage.ID
	}
	if len(outcome.PhotoURLs) > 0 {
		resp.PhotoURL = outcome.PhotoURLs[0]
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) readPhotos(c *gin.Context) ([]*domain.Photo, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.Invalidf("malformed form: %v", err)
	}
	var photos []*domain.Photo
	for _, fh := range form.File["photo"] {
		if fh.Filename == "" {
			continue
		}
		photo, err := s.readPhoto(fh)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

func (s *Server) readPhoto(fh *multipart.FileHeader) (*domain.Photo, error) {
	limit := s.cfg.MaxUploadBytes
	if fh.Size > limit {
		return nil, domain.Invalidf("file too large, max size is %dMB", limit/1024/1024)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read upload %s", fh.Filename)
	}
	return domain.NewUploadedPhoto(fh.Filename, content, limit)
}

// RegisterDevice godoc
// @Summary Register a push token
// @Tags devices
// @Accept json
// @Produce json
// @Param request body RegisterDeviceRequest true "device"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Router /register_device [post]
func (s *Server) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Invalid("request body is required"))
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Platform == "" {
		writeError(c, domain.Invalid("user_id and platform are required"))
		return
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		writeError(c, err)
		return
	}

	var token string
	switch platform {
	case domain.PlatformAndroid:
		token = lo.CoalesceOrEmpty(req.FCMToken, req.Token)
	case domain.PlatformIOS:
		token = lo.CoalesceOrEmpty(req.APNsToken, req.Token)
	}
	if token == "" {
		writeError(c, domain.Invalidf("a push token is required for %s", platform))
		return
	}

	err = s.svc.Store.SaveDeviceToken(c.Request.Context(), domain.DeviceToken{
		UserID:   userID,
		Platform: platform,
		Token:    token,
		DeviceID: strings.TrimSpace(req.DeviceID),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MessageHistory godoc
// @Summary Conversation history of a user
// @Description Greets the user once per day before returning the history.
// @Tags messages
// @Produce json
// @Param user_id path string true "user id"
// @Param limit query int false "max messages" default(50)
// @Param user_name query string false "name used in the greeting"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} ErrorResponse
// @Router /message_history/{user_id} [get]
func (s *Server) MessageHistory(c *gin.Context) {
	limit := core.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, domain.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}
	messages, err := s.svc.Greeter.History(c.Request.Context(), c.Param("user_id"), c.Query("user_name"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Success: true, Messages: messages})
}

// CheckDevice godoc
// @Summary Whether a user has a registered device
// @Tags devices
// @Produce json
// @Param user_id path string true "user id"
// @Success 200 {object} CheckDeviceResponse
// @Router /check_device/{user_id} [get]
func (s *Server) CheckDevice(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	tokens, err := s.svc.Store.DeviceTokens(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	platforms := lo.Uniq(lo.Map(tokens, func(t domain.DeviceToken, _ int) domain.Platform { return t.Platform }))
	c.JSON(http.StatusOK, CheckDeviceResponse{
		Success:   true,
		UserID:    userID,
		HasDevice: len(tokens) > 0,
		Devices:   len(tokens),
		Platforms: platforms,
	})
}

// GetSupportMode godoc
// @Summary Current support mode of a user
// @Tags support
// @Produce json
// @Param user_id path string true "user id"
// @Success 200 {object} SupportModeResponse
// @Router /support_mode/{user_id} [get]
func (s *Server) GetSupportMode(c *gin.Context) {
	state, err := s.svc.Arbiter.Mode(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.modeResponse(state))
}

// SetSupportMode godoc
// @Summary Force the support mode of a user
// @Tags support
// @Accept json
// @Produce json
// @Param user_id path string true "user id"
// @Param request body SupportModeRequest true "mode"
// @Success 200 {object} SupportModeResponse
// @Failure 400 {object} ErrorResponse
// @Router /support_mode/{user_id} [post]
func (s *Server) SetSupportMode(c *gin.Context) {
	var req SupportModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Invalid("mode is required"))
		return
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeError(c, err)
		return
	}
	state, err := s.svc.Arbiter.SetMode(c.Request.Context(), c.Param("user_id"), mode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.modeResponse(state))
}

func (s *Server) modeResponse(state domain.ModeState) SupportModeResponse {
	resp := SupportModeResponse{
		Success:        true,
		UserID:         state.UserID,
		Mode:           state.Mode,
		TimeoutSeconds: int64(s.svc.Arbiter.Timeout() / time.Second),
	}
	if !state.LastUserMessageAt.IsZero() {
		resp.LastUserMessageAt = lo.ToPtr(state.LastUserMessageAt)
	}
	if !state.SwitchedAt.IsZero() {
		resp.SwitchedAt = lo.ToPtr(state.SwitchedAt)
	}
	return resp
}

// Upload serves a stored photo.
func (s *Server) Upload(c *gin.Context) {
	path, ok := s.svc.Uploads.Path(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
		return
	}
	c.File(path)
}
