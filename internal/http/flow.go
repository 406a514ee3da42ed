package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/flow"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// QuadrantsRequest selects quadrants.
type QuadrantsRequest struct {
	Quadrants []catalog.Quadrant `json:"quadrants"`
}

// IntensityRequest sets the intensity.
type IntensityRequest struct {
	Intensity int `json:"intensity"`
}

// FullFlowRequest toggles the full RULER path.
type FullFlowRequest struct {
	FullFlow bool `json:"full_flow"`
}

// MoodRequest completes the mood meter.
type MoodRequest struct {
	Quadrants []catalog.Quadrant `json:"quadrants"`
	Intensity int                `json:"intensity"`
}

// EmotionsRequest selects or confirms emotions.
type EmotionsRequest struct {
	EmotionIDs []string `json:"emotion_ids"`
}

// PostMoodRequest records the neuro-check answer.
type PostMoodRequest struct {
	Mood string `json:"mood"`
}

// flowAction runs one controller action and replies with the new state.
func (s *Server) flowAction(c echo.Context, fn func() (flow.State, error)) error {
	st, err := fn()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleFlowState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.flow.State())
}

func (s *Server) handleResume(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.ResumeDraft(c.Request().Context())
	})
}

func (s *Server) handleRestart(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.DeclineResume(c.Request().Context())
	})
}

func (s *Server) handleQuadrants(c echo.Context) error {
	var req QuadrantsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SelectQuadrants(c.Request().Context(), req.Quadrants)
	})
}

func (s *Server) handleIntensity(c echo.Context) error {
	var req IntensityRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SetIntensity(c.Request().Context(), req.Intensity)
	})
}

func (s *Server) handleFullFlow(c echo.Context) error {
	var req FullFlowRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SetFullFlow(c.Request().Context(), req.FullFlow)
	})
}

func (s *Server) handleMood(c echo.Context) error {
	var req MoodRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteMood(c.Request().Context(), req.Quadrants, req.Intensity)
	})
}

func (s *Server) handleBodyScan(c echo.Context) error {
	var req ruler.BodyScan
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteBodyScan(c.Request().Context(), &req)
	})
}

func (s *Server) handleSkipBodyScan(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SkipBodyScan(c.Request().Context())
	})
}

func (s *Server) handleEmotions(c echo.Context) error {
	var req EmotionsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SelectEmotions(c.Request().Context(), req.EmotionIDs)
	})
}

func (s *Server) handleLabeling(c echo.Context) error {
	var req EmotionsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteLabeling(c.Request().Context(), req.EmotionIDs)
	})
}

func (s *Server) handleUnderstanding(c echo.Context) error {
	var req ruler.Understanding
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteUnderstanding(c.Request().Context(), &req)
	})
}

func (s *Server) handleExpressing(c echo.Context) error {
	var req ruler.Expressing
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteExpressing(c.Request().Context(), &req)
	})
}

func (s *Server) handleRegulating(c echo.Context) error {
	var req ruler.Regulating
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteRegulating(c.Request().Context(), &req)
	})
}

func (s *Server) handlePostMood(c echo.Context) error {
	var req PostMoodRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.SetPostMood(c.Request().Context(), req.Mood)
	})
}

func (s *Server) handleNeuroCheck(c echo.Context) error {
	var req PostMoodRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.CompleteNeuroCheck(c.Request().Context(), req.Mood)
	})
}

func (s *Server) handleBack(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.Back(c.Request().Context())
	})
}

func (s *Server) handleReset(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.Reset(c.Request().Context())
	})
}

func (s *Server) handleUpgrade(c echo.Context) error {
	return s.flowAction(c, func() (flow.State, error) {
		return s.flow.UpgradeToFullFlow(c.Request().Context())
	})
}

// CatalogEmotionsResponse lists emotions, optionally filtered by quadrant.
type CatalogEmotionsResponse struct {
	Emotions []catalog.Emotion `json:"emotions"`
}

func queryQuadrants(c echo.Context) ([]catalog.Quadrant, error) {
	params := c.QueryParams()["quadrant"]
	qs := make([]catalog.Quadrant, 0, len(params))
	for _, p := range params {
		q, err := catalog.ParseQuadrant(p)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (s *Server) handleCatalogEmotions(c echo.Context) error {
	qs, err := queryQuadrants(c)
	if err != nil {
		return err
	}
	if len(qs) == 0 {
		return c.JSON(http.StatusOK, CatalogEmotionsResponse{Emotions: catalog.Emotions()})
	}
	return c.JSON(http.StatusOK, CatalogEmotionsResponse{Emotions: catalog.EmotionsIn(qs...)})
}

func (s *Server) handleCatalogNeeds(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"needs": catalog.Needs()})
}

func (s *Server) handleCatalogStrategies(c echo.Context) error {
	qs, err := queryQuadrants(c)
	if err != nil {
		return err
	}
	if len(qs) == 0 {
		qs = catalog.Quadrants
	}
	out := make(map[catalog.Quadrant][]catalog.Strategy, len(qs))
	for _, q := range qs {
		out[q] = catalog.StrategiesFor(q)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"strategies": out})
}

func (s *Server) handleCatalogBody(c echo.Context) error {
	sensations := make(map[catalog.Quadrant][]catalog.Sensation, len(catalog.Quadrants))
	for _, q := range catalog.Quadrants {
		sensations[q] = catalog.SensationsFor(q)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations":  catalog.BodyLocations(),
		"sensations": sensations,
	})
}

func (s *Server) handleCatalogMoods(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"moods": catalog.MoodOptions})
}

func (s *Server) handleCatalogPrompts(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"expression": catalog.ExpressionPrompts(),
		"context":    catalog.UnderstandingOptions(),
	})
}
