package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"connectme/models"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// Out - куда печатается вывод. Подменяется в тестах.
var Out io.Writer = os.Stdout

func Success(format string, args ...any) {
	fmt.Fprint(Out, successStyle.Render("✓ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

func Warning(format string, args ...any) {
	fmt.Fprint(Out, warningStyle.Render("⚠ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

func Error(format string, args ...any) {
	fmt.Fprint(Out, errorStyle.Render("✗ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

func Info(format string, args ...any) {
	fmt.Fprint(Out, infoStyle.Render("ℹ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

func Muted(format string, args ...any) {
	fmt.Fprintln(Out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section печатает заголовок раздела.
func Section(title string) {
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, primaryStyle.Render(title))
	fmt.Fprintln(Out)
}

// Swatch рисует цвет пост-ита.
func Swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("■")
}

// Connection возвращает значок состояния связи с хранилищем.
func Connection(online bool) string {
	if online {
		return successStyle.Render("online")
	}
	return warningStyle.Render("offline")
}

// Age выводит возраст пост-ита в виде "3 days ago".
func Age(p models.PostIt, now time.Time) string {
	if p.CreatedAt == "" {
		return "-"
	}
	created, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return "-"
	}
	return humanize.RelTime(created, now, "ago", "from now")
}

// PostIts печатает таблицу пост-итов. joined отмечает присоединения пользователя.
func PostIts(postIts []models.PostIt, joined func(id string) bool, now time.Time) {
	if len(postIts) == 0 {
		Muted("no post-its")
		return
	}
	table := uitable.New()
	table.MaxColWidth = 40
	table.Wrap = true

	table.AddRow("", "ID", "CATEGORY", "CAMPUS", "TITLE", "PEOPLE", "CREATED", "")
	for _, p := range postIts {
		title := p.Title
		if title == "" {
			title = p.Content
		}
		mark := ""
		if joined(p.ID) {
			mark = successStyle.Render("joined")
		}
		table.AddRow(Swatch(p.Color), p.ID, p.Category, p.Campus, title,
			humanize.Comma(int64(p.Participants)), Age(p, now), mark)
	}
	fmt.Fprintln(Out, table)
}
