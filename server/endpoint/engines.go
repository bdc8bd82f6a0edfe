package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mira/engine"
	apperrors "github.com/kbukum/mira/errors"
	"github.com/kbukum/mira/query"
)

// FormatCondensed selects views without health, metrics or backend payloads.
const FormatCondensed = "condensed"

// EngineLister is the read side of the discovery loop.
type EngineLister interface {
	List(sets ...query.Constraints) ([]*engine.Entry, error)
}

// Engines lists the known engines, optionally filtered by the JSON
// constraints in the properties query parameter. A failing discovery backend
// answers 503 with the discovery error.
func Engines(lister EngineLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sets []query.Constraints
		if raw := c.Query("properties"); raw != "" {
			parsed, err := query.Parse([]byte(raw))
			if err != nil {
				Fail(c, apperrors.InvalidInput("properties", err.Error()))
				return
			}
			sets = parsed
		}

		entries, err := lister.List(sets...)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, engine.Views(entries, condensed(c)))
	}
}

// Engine returns the view of the engine named by the key path parameter.
func Engine(lister EngineLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		entries, err := lister.List()
		if err != nil {
			Fail(c, err)
			return
		}
		for _, e := range entries {
			if e.Key() == key {
				c.JSON(http.StatusOK, e.View(condensed(c)))
				return
			}
		}
		Fail(c, apperrors.NotFound("engine", key))
	}
}

func condensed(c *gin.Context) bool {
	return c.Query("format") == FormatCondensed
}
