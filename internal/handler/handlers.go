package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/activity"
	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/auth"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/store"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
	maxKarmaAward          = 10
)

// Handlers bundles the API endpoints and their collaborators.
type Handlers struct {
	coordinator *auth.Coordinator
	local       *auth.LocalService
	activity    *activity.Service
	store       store.Store
	logger      *zap.Logger

	// NewID and Now are injected for testability.
	NewID func() string
	Now   func() time.Time
}

// NewHandlers creates the API handler set.
func NewHandlers(
	coordinator *auth.Coordinator,
	local *auth.LocalService,
	activitySvc *activity.Service,
	st store.Store,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		coordinator: coordinator,
		local:       local,
		activity:    activitySvc,
		store:       st,
		logger:      logger,
		NewID:       uuid.NewString,
		Now:         time.Now,
	}
}

func parseProvider(raw string) (model.Provider, error) {
	switch model.Provider(raw) {
	case model.ProviderGoogle:
		return model.ProviderGoogle, nil
	case model.ProviderGitHub:
		return model.ProviderGitHub, nil
	default:
		return "", apperror.Newf(apperror.KindValidation, "unknown provider %q", raw)
	}
}

// AuthURL returns the provider authorization URL with a fresh state value.
func (h *Handlers) AuthURL(w http.ResponseWriter, r *http.Request) {
	providerName, err := parseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := h.coordinator.AuthURL(providerName, h.NewID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": url})
}

// Callback redeems the authorization code posted by the frontend.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	providerName, err := parseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	var input struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.coordinator.Callback(r.Context(), providerName, input.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Register creates a password identity.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var input auth.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.local.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Login verifies a password identity.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.local.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListUsers returns public views of every user.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]model.PublicUser, 0, len(users))
	for i := range users {
		views = append(views, users[i].PublicView())
	}
	writeJSON(w, http.StatusOK, views)
}

// GetUser returns one user's public view.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.FindUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.PublicView())
}

// Me returns the authenticated user's own public view.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.PublicView())
}

// UpdateUser updates the authenticated user's own profile fields. Email,
// provider, and credentials are not part of the payload and stay untouched.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")
	if targetID != userID {
		writeError(w, apperror.New(apperror.KindForbidden, "can only update your own profile"))
		return
	}

	var input struct {
		Username      *string        `json:"username"`
		SkillsOffered []string       `json:"skills_offered"`
		SkillsNeeded  []string       `json:"skills_needed"`
		SkillProgress map[string]int `json:"skill_progress"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.FindUserByID(r.Context(), targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if input.Username != nil {
		if *input.Username == "" {
			writeError(w, apperror.New(apperror.KindValidation, "username cannot be empty"))
			return
		}
		user.Username = *input.Username
	}
	if input.SkillsOffered != nil {
		user.SkillsOffered = input.SkillsOffered
	}
	if input.SkillsNeeded != nil {
		user.SkillsNeeded = input.SkillsNeeded
	}
	if input.SkillProgress != nil {
		user.SkillProgress = input.SkillProgress
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.PublicView())
}

// UpdateSkills replaces the authenticated user's offered and needed skills.
func (h *Handlers) UpdateSkills(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")
	if targetID != userID {
		writeError(w, apperror.New(apperror.KindForbidden, "can only update your own skills"))
		return
	}

	var input struct {
		SkillsOffered []string `json:"skills_offered"`
		SkillsNeeded  []string `json:"skills_needed"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.FindUserByID(r.Context(), targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	user.SkillsOffered = input.SkillsOffered
	user.SkillsNeeded = input.SkillsNeeded
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.PublicView())
}

// AwardKarma grants karma points to another user.
func (h *Handlers) AwardKarma(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")
	if targetID == userID {
		writeError(w, apperror.New(apperror.KindValidation, "cannot award karma to yourself"))
		return
	}

	var input struct {
		Points int `json:"points"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.Points == 0 {
		input.Points = 1
	}
	if input.Points < 0 || input.Points > maxKarmaAward {
		writeError(w, apperror.Newf(apperror.KindValidation, "points must be between 1 and %d", maxKarmaAward))
		return
	}

	user, err := h.store.FindUserByID(r.Context(), targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	user.KarmaPoints += input.Points
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.PublicView())
}

// Activity returns the authenticated user's contribution calendar.
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	report, err := h.activity.UserReport(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListSkills returns the skill catalog.
func (h *Handlers) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.store.ListSkills(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

// CreateSkill adds a skill to the catalog.
func (h *Handlers) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.Name == "" {
		writeError(w, apperror.New(apperror.KindValidation, "skill name is required"))
		return
	}

	skill := &model.Skill{
		ID:          h.NewID(),
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		CreatedAt:   h.Now().UTC(),
	}
	if err := h.store.InsertSkill(r.Context(), skill); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, skill)
}

// ListMessages returns the chat history.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListMessages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// PostMessage appends a chat message from the authenticated user.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if input.Message == "" {
		writeError(w, apperror.New(apperror.KindValidation, "message cannot be empty"))
		return
	}

	message := &model.Message{
		ID:        h.NewID(),
		UserID:    userID,
		Body:      input.Message,
		Timestamp: h.Now().UTC(),
	}
	if err := h.store.InsertMessage(r.Context(), message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// Leaderboard returns users ranked by karma.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, apperror.New(apperror.KindValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	users, err := h.store.TopUsersByKarma(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]model.PublicUser, 0, len(users))
	for i := range users {
		views = append(views, users[i].PublicView())
	}
	writeJSON(w, http.StatusOK, views)
}
