package utils

import (
	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/workforce/pkg/log"
)

var httpLog = log.Component("http")

func HttpLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			httpLog.Debugf("%4s %s %v: %v", c.Request().Method, c.Request().URL, c.Response().Status, err)
			return err
		}
		httpLog.Tracef("%4s %s %v", c.Request().Method, c.Request().URL, c.Response().Status)
		return nil
	}
}
