package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/problem"
)

// MIMEApplicationProblemJSON is the content type of error responses.
const MIMEApplicationProblemJSON = "application/problem+json"

// Problem is a problem details document.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemFor converts err into a problem details document. Errors outside the catalog and fiber
// errors become an opaque internal server error.
func problemFor(err error) Problem {
	if p, ok := problem.From(err); ok {
		doc := Problem{Type: p.URI(), Title: p.Title, Status: p.Status}
		if msg := err.Error(); msg != p.Title {
			doc.Detail = msg
		}

		return doc
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		doc := Problem{Type: "about:blank", Title: http.StatusText(fiberErr.Code), Status: fiberErr.Code}
		if fiberErr.Message != doc.Title {
			doc.Detail = fiberErr.Message
		}

		return doc
	}

	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	}
}

// ErrorHandler renders handler errors as application/problem+json.
func ErrorHandler(c fiber.Ctx, err error) error {
	doc := problemFor(err)
	doc.Instance = c.Path()

	if doc.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(doc.Status).JSON(doc, MIMEApplicationProblemJSON)
}
