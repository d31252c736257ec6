package echoapi

import (
	"github.com/labstack/echo/v4"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := getSession(ctx).RequireAdmin(); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getSession(ctx).RequireStudent(); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
