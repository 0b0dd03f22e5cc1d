package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/labstack/echo/v4"
)

// handleCheckTrial reports the caller's remaining trials
func (s *Server) handleCheckTrial(c echo.Context) error {
	user, err := s.userByID(userID(c))
	if err != nil {
		logger.Error("Failed to check trial status", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "Failed to check trial status")
	}

	return c.JSON(http.StatusOK, api.TrialStatusResponse{
		Envelope:        api.Envelope{Success: true},
		HasTrials:       user.IsAdmin || user.TrialCount > 0,
		RemainingTrials: user.TrialCount,
		IsAdmin:         user.IsAdmin,
	})
}

// handleUseTrial spends one trial. Admins are never charged.
func (s *Server) handleUseTrial(c echo.Context) error {
	var req api.UseTrialRequest
	_ = c.Bind(&req)
	if req.DemoType == "" {
		req.DemoType = model.TrialKindImage
	}

	id := userID(c)
	user, err := s.userByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusBadRequest, "User not found")
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to use trial")
	}

	if user.IsAdmin {
		logger.Info("Admin generation", logger.F("user_id", id))
		return c.JSON(http.StatusOK, api.UseTrialResponse{
			Envelope:        api.Envelope{Success: true, Message: "Trial used successfully"},
			RemainingTrials: model.UnlimitedTrials,
			IsAdmin:         true,
		})
	}

	remaining, err := s.consumeTrial(c, id, req.DemoType)
	if errors.Is(err, errNoTrials) {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		logger.Error("Failed to use trial", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "Failed to use trial")
	}

	logger.Info("Trial used", logger.F("user_id", id), logger.F("remaining", remaining), logger.F("demo_type", req.DemoType))
	return c.JSON(http.StatusOK, api.UseTrialResponse{
		Envelope:        api.Envelope{Success: true, Message: "Trial used successfully"},
		RemainingTrials: remaining,
	})
}

var errNoTrials = errors.New("No trials remaining")

// consumeTrial decrements atomically so concurrent calls cannot overdraw
func (s *Server) consumeTrial(c echo.Context, id int64, demoType string) (int, error) {
	ctx := c.Request().Context()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx, s.q(`
		UPDATE users SET trial_count = trial_count - 1
		WHERE id = $1 AND trial_count > 0
		RETURNING trial_count`),
		id,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errNoTrials
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO trial_usage (user_id, demo_type, used_at) VALUES ($1, $2, $3)`),
		id, demoType, s.cfg.Now().Unix(),
	); err != nil {
		return 0, err
	}

	return remaining, tx.Commit()
}
