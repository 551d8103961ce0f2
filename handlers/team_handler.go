package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-fixtures/middleware"
	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/services"
)

type TeamHandler struct {
	registrationService services.RegistrationService
}

func NewTeamHandler(rs services.RegistrationService) *TeamHandler {
	return &TeamHandler{
		registrationService: rs,
	}
}

// RegisterTeam godoc
// @Summary Зарегистрировать команду на турнир
// @Tags teams
// @Description Капитаном команды становится текущий пользователь.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body services.RegisterTeamInput true "Team"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Уже зарегистрирован / имя занято / турнир заполнен"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams [post]
func (h *TeamHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.TournamentID = tournamentID
	input.TeamLeaderID = currentUserID

	team, err := h.registrationService.RegisterTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeams godoc
// @Summary Команды турнира в порядке регистрации
// @Tags teams
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param status query string false "pending | approved | rejected"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/teams [get]
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.TeamStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.TeamStatus(raw)
		status = &s
	}

	teams, err := h.registrationService.ListTeams(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMyTeams godoc
// @Summary Заявки текущего пользователя во всех турнирах
// @Tags teams
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /me/teams [get]
func (h *TeamHandler) ListMyTeams(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	teams, err := h.registrationService.ListLeaderTeams(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeamsByStatus godoc
// @Summary Очередь заявок по всем турнирам
// @Tags teams
// @Description Без параметра status возвращает заявки на рассмотрении.
// @Produce json
// @Param status query string false "pending | approved | rejected"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неизвестный статус"
// @Security BearerAuth
// @Router /teams [get]
func (h *TeamHandler) ListTeamsByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.TeamStatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = models.TeamStatus(raw)
	}

	teams, err := h.registrationService.ListTeamsByStatus(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type decideTeamRequest struct {
	Status models.TeamStatus `json:"status"`
	Reason string            `json:"reason"`
}

// DecideTeam godoc
// @Summary Одобрить или отклонить заявку команды
// @Tags teams
// @Accept json
// @Produce json
// @Param teamID path string true "Team ID"
// @Param input body decideTeamRequest true "Decision"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неверное решение"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Failure 409 {object} map[string]string "Уже рассмотрена / турнир заполнен"
// @Security BearerAuth
// @Router /teams/{teamID}/status [patch]
func (h *TeamHandler) DecideTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input decideTeamRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.registrationService.DecideTeam(r.Context(), teamID, input.Status, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
