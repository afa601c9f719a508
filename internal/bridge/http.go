package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	replayerrs "github.com/pharrisenterprises/replaycore/internal/errs"
)

// errorEnvelope is the JSON error shape every failing bridge response uses,
// carrying the structured errs.Kind so host code can branch on it instead
// of matching error text (spec §7's taxonomy).
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *errorEnvelope `json:"error,omitempty"`
}

func errorResponse(err error) response {
	var re *replayerrs.Error
	if errors.As(err, &re) {
		return response{Success: false, Error: &errorEnvelope{Code: string(re.Kind), Message: re.Error()}}
	}
	return response{Success: false, Error: &errorEnvelope{Code: "Unknown", Message: err.Error()}}
}

// NewRouter builds a gin.Engine exposing the host ↔ core request/response
// channel of spec §6 over HTTP, one route per recognised request action.
// Grounded in the teacher pack's Easonliuliang-purify api/router.go
// (gin.New + Recovery + Logger, a versioned route group per operation).
func NewRouter(d *Dispatcher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, response{Success: true, Data: d.Ping()})
	})

	v1.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, response{Success: true, Data: d.GetState(c.Request.Context())})
	})

	v1.POST("/recording/start", func(c *gin.Context) {
		var req StartRecordingRequest
		_ = c.ShouldBindJSON(&req)
		if err := d.StartRecording(req); err != nil {
			c.JSON(http.StatusConflict, errorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response{Success: true})
	})

	v1.POST("/recording/stop", func(c *gin.Context) {
		steps := d.StopRecording()
		c.JSON(http.StatusOK, response{Success: true, Data: steps})
	})

	v1.POST("/replay/execute", func(c *gin.Context) {
		var req ExecuteReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(
				replayerrs.Wrap(replayerrs.InvalidStep, "bridge.http.executeReplay", err, "malformed request body")))
			return
		}
		summary, err := d.ExecuteReplay(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, errorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response{Success: true, Data: summary})
	})

	v1.POST("/replay/step", func(c *gin.Context) {
		var req ExecuteStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(
				replayerrs.Wrap(replayerrs.InvalidStep, "bridge.http.executeStep", err, "malformed request body")))
			return
		}
		result, err := d.ExecuteStep(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, errorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response{Success: true, Data: result})
	})

	return r
}
