package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/makeitchaccha/speakup/speakup/history"
)

func (s *Server) ListHistory(c echo.Context) error {
	entries, err := s.history.List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) DeleteHistory(c echo.Context) error {
	filename, err := url.PathUnescape(c.Param("filename"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid file name")
	}

	if err := s.history.Delete(filename); err != nil {
		switch {
		case errors.Is(err, history.ErrInvalidArgument):
			return fail(c, http.StatusBadRequest, "invalid file name")
		case errors.Is(err, history.ErrNotFound):
			return fail(c, http.StatusNotFound, "file not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
