package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-fixtures/brackets"
	"github.com/Dosada05/tournament-fixtures/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Default().Error("failed to write error response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Default().Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, message)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "the requested resource could not be found"
	}
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Default().Error("upstream dependency failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	errorResponse(w, r, http.StatusBadGateway, err.Error())
}

// mapServiceErrorToHTTP преобразует ошибки сервисов и движка в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrFixtureNotFound),
		errors.Is(err, brackets.ErrMatchNotFound):
		notFoundResponse(w, r, err.Error())

	// Конфликты состояния
	case errors.Is(err, services.ErrTournamentNameConflict),
		errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrTeamNameConflict),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrTournamentLimitBelowApproved),
		errors.Is(err, services.ErrTeamAlreadyDecided),
		errors.Is(err, services.ErrFixtureExists),
		errors.Is(err, services.ErrConcurrentUpdate),
		errors.Is(err, brackets.ErrMatchAlreadyCompleted),
		errors.Is(err, brackets.ErrMatchNotCompleted):
		conflictResponse(w, r, err.Error())

	// Ростер или турнир не позволяют построить расписание
	case errors.Is(err, brackets.ErrInsufficientParticipants),
		errors.Is(err, brackets.ErrInvalidTeam),
		errors.Is(err, brackets.ErrInvalidTournament):
		failedValidationResponse(w, r, err.Error())

	// Невалидный ввод
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentGameRequired),
		errors.Is(err, services.ErrTournamentDateRequired),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrTournamentInvalidFee),
		errors.Is(err, services.ErrTournamentInvalidCurrency),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrPlayersRequired),
		errors.Is(err, services.ErrTeamLeaderRequired),
		errors.Is(err, services.ErrPaymentProofRequired),
		errors.Is(err, services.ErrInvalidTeamDecision),
		errors.Is(err, services.ErrRejectionReasonRequired),
		errors.Is(err, brackets.ErrInvalidScore),
		errors.Is(err, brackets.ErrInvalidRound):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrArchiveFailed):
		badGatewayResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, paramName))
	if id == "" {
		return "", fmt.Errorf("missing %s in URL path", paramName)
	}
	return id, nil
}

func getRoundFromURL(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "round")
	round, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid round format: %q", raw)
	}
	if round < 1 {
		return 0, fmt.Errorf("round must be a positive integer, got %d", round)
	}
	return round, nil
}
