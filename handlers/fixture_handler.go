package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-fixtures/services"
)

type FixtureHandler struct {
	fixtureService services.FixtureService
}

func NewFixtureHandler(fs services.FixtureService) *FixtureHandler {
	return &FixtureHandler{
		fixtureService: fs,
	}
}

type generateFixtureRequest struct {
	Round   int  `json:"round"`
	Replace bool `json:"replace"` // перезаписать уже сгенерированный раунд
}

// scoreRequest uses pointers so that a missing score is told apart from 0.
type scoreRequest struct {
	Score1  *int `json:"score1"`
	Score2  *int `json:"score2"`
	Confirm bool `json:"confirm,omitempty"`
}

// GenerateFixture godoc
// @Summary Сгенерировать раунд (круговая система)
// @Tags fixtures
// @Description Без replace существующий раунд не перезаписывается (409).
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body generateFixtureRequest true "Round"
// @Success 201 {object} models.Schedule
// @Failure 400 {object} map[string]string "Неверный раунд"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Раунд уже существует"
// @Failure 422 {object} map[string]string "Меньше двух одобренных команд"
// @Failure 502 {object} map[string]string "Не удалось архивировать старый раунд"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/fixtures [post]
func (h *FixtureHandler) GenerateFixture(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateFixtureRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	schedule, err := h.fixtureService.GenerateFixture(r.Context(), tournamentID, input.Round, input.Replace)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, schedule, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListFixtures godoc
// @Summary Все раунды турнира
// @Tags fixtures
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/fixtures [get]
func (h *FixtureHandler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixtures, err := h.fixtureService.ListFixtures(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fixtures": fixtures}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetFixture godoc
// @Summary Раунд турнира
// @Tags fixtures
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round path int true "Round"
// @Success 200 {object} models.Schedule
// @Failure 404 {object} map[string]string "Раунд не найден"
// @Router /tournaments/{tournamentID}/fixtures/{round} [get]
func (h *FixtureHandler) GetFixture(w http.ResponseWriter, r *http.Request) {
	tournamentID, round, ok := h.fixturePath(w, r)
	if !ok {
		return
	}

	schedule, err := h.fixtureService.GetFixture(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, schedule, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStandings godoc
// @Summary Таблица раунда
// @Tags fixtures
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round path int true "Round"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Раунд не найден"
// @Router /tournaments/{tournamentID}/fixtures/{round}/standings [get]
func (h *FixtureHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, round, ok := h.fixturePath(w, r)
	if !ok {
		return
	}

	standings, err := h.fixtureService.GetStandings(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportScore godoc
// @Summary Внести счёт матча
// @Tags fixtures
// @Description Счёт вносится один раз; повторная отправка возвращает 409.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round path int true "Round"
// @Param matchID path string true "Match ID"
// @Param input body scoreRequest true "Score"
// @Success 200 {object} models.Schedule
// @Failure 400 {object} map[string]string "Неверный счёт"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/fixtures/{round}/matches/{matchID}/score [put]
func (h *FixtureHandler) ReportScore(w http.ResponseWriter, r *http.Request) {
	input, ok := h.scoreInput(w, r, false)
	if !ok {
		return
	}

	schedule, err := h.fixtureService.ReportScore(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, schedule, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OverrideScore godoc
// @Summary Исправить счёт завершённого матча
// @Tags fixtures
// @Description Требует confirm: true.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round path int true "Round"
// @Param matchID path string true "Match ID"
// @Param input body scoreRequest true "Score"
// @Success 200 {object} models.Schedule
// @Failure 400 {object} map[string]string "Нет подтверждения / неверный счёт"
// @Failure 409 {object} map[string]string "Матч ещё не сыгран"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/fixtures/{round}/matches/{matchID}/override [put]
func (h *FixtureHandler) OverrideScore(w http.ResponseWriter, r *http.Request) {
	input, ok := h.scoreInput(w, r, true)
	if !ok {
		return
	}

	schedule, err := h.fixtureService.OverrideScore(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, schedule, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *FixtureHandler) fixturePath(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", 0, false
	}
	round, err := getRoundFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return "", 0, false
	}
	return tournamentID, round, true
}

// scoreInput reads the path and body shared by score reports and overrides.
// With requireConfirm the body must carry confirm: true.
func (h *FixtureHandler) scoreInput(w http.ResponseWriter, r *http.Request, requireConfirm bool) (services.ReportScoreInput, bool) {
	tournamentID, round, ok := h.fixturePath(w, r)
	if !ok {
		return services.ReportScoreInput{}, false
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return services.ReportScoreInput{}, false
	}

	var body scoreRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return services.ReportScoreInput{}, false
	}
	if body.Score1 == nil || body.Score2 == nil {
		badRequestResponse(w, r, errors.New("score1 and score2 are required"))
		return services.ReportScoreInput{}, false
	}
	if requireConfirm && !body.Confirm {
		badRequestResponse(w, r, errors.New("overriding a completed match requires \"confirm\": true"))
		return services.ReportScoreInput{}, false
	}

	return services.ReportScoreInput{
		TournamentID: tournamentID,
		Round:        round,
		MatchID:      matchID,
		Score1:       *body.Score1,
		Score2:       *body.Score2,
	}, true
}
