// Package pages 渲染内嵌的 HTML 页面。页面本身不需要认证，数据通过带令牌的 API 获取。
package pages

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	Login     = "login.html"
	Dashboard = "dashboard.html"
	Users     = "users.html"
	SnakeGame = "snake_game.html"
)

type Renderer struct {
	tmpl *template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
