package handlers

import (
	"strconv"
	"time"

	"PathLab/middlewares"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// scope returns the lab and caller for a lab-scoped route. It writes the
// error response and returns ok=false when either is missing.
func scope(c *gin.Context, log *zap.Logger) (string, services.Actor, bool) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, log, err)
		return "", services.Actor{}, false
	}
	lab := middlewares.LabFromContext(c.Request.Context())
	if lab == "" {
		lab = actor.LabID
	}
	return lab, actor, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n <= 0 {
		middlewares.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// dateQuery parses an optional YYYY-MM-DD query value in local time.
func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		middlewares.BadRequest(c, "invalid "+name+", expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
