package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Stage/internal/adapters/rtc"
	"github.com/dkeye/Stage/internal/app/orch"
	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/dkeye/Stage/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TokenIssuer signs tokens for the dev login.
type TokenIssuer interface {
	TokenVerifier
	Issue(id domain.Identity) (string, error)
}

type handlers struct {
	orch       *orch.Orchestrator
	auth       TokenIssuer
	scores     store.Scores
	ice        config.ICEConfig
	devLogin   bool
	sendBuffer int
}

func status(err error) int {
	if errors.Is(err, orch.ErrForbidden) {
		return http.StatusForbidden
	}
	switch core.Code(err) {
	case "invalid_input", "bad_payload":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "already_done", "invalid_state":
		return http.StatusConflict
	case "transport_failure":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"code": core.Code(err), "error": err.Error()}
	var already *vote.AlreadyRespondedError
	if errors.As(err, &already) {
		body["prior"] = already.Prior
		if already.CorrectIndex != domain.NoCorrectAnswer {
			body["correctIndex"] = already.CorrectIndex
		}
	}
	var invalid *vote.InvalidOptionError
	if errors.As(err, &invalid) {
		body["options"] = invalid.Options
	}
	c.JSON(status(err), body)
}

type sessionRequest struct {
	Token  string      `json:"token"`
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// createSession stores a verified token in the cookie session so browser
// WebSocket upgrades are authenticated without a header.
func (h *handlers) createSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token := req.Token
	if token == "" && h.devLogin {
		id := domain.Identity{UserID: domain.UserID(req.UserID), Email: req.Email, Role: domain.ParseRole(string(req.Role))}
		if err := id.UserID.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issued, err := h.auth.Issue(id)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("issue dev token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		token = issued
	}
	id, err := h.auth.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	sess := sessions.Default(c)
	sess.Set(sessionTokenKey, token)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id, "token": token})
}

func (h *handlers) participants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.orch.Participants(domain.EventID(c.Param("id")))})
}

func (h *handlers) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Registry.List()})
}

func (h *handlers) launchBallot(c *gin.Context) {
	var b domain.Ballot
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ballot"})
		return
	}
	out, err := h.orch.LaunchBallot(c.Request.Context(), identity(c), b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handlers) closeBallot(c *gin.Context) {
	tally, err := h.orch.CloseBallot(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ballotId": c.Param("id"), "tally": tally})
}

func (h *handlers) submitResponse(c *gin.Context) {
	var req struct {
		Option *int `json:"option"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Option == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option is required"})
		return
	}
	res, err := h.orch.Vote(c.Request.Context(), identity(c), c.Param("id"), *req.Option)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) score(c *gin.Context) {
	eventID := domain.EventID(c.Param("id"))
	user := domain.UserID(c.Param("user"))
	n, err := h.orch.Score(c.Request.Context(), user, eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "userId": user, "score": n})
}

func (h *handlers) leaderboard(c *gin.Context) {
	eventID := domain.EventID(c.Param("id"))
	board, err := h.scores.Leaderboard(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "scores": board})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": rtc.Configuration(h.ice).ICEServers})
}
