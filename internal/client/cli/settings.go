package cli

import (
	"context"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

// Theme and Design are local preferences and work signed out.

func (a *App) Theme(ctx context.Context, value string) error {
	t := models.Theme(value)
	cur, err := a.settings.Set(ctx, models.SettingsPatch{Theme: &t})
	if err != nil {
		return err
	}
	printlnFn(a.styles().Success.Render("Theme: " + string(cur.Theme)))
	return nil
}

func (a *App) Design(ctx context.Context, value string) error {
	v := models.DesignVersion(value)
	cur, err := a.settings.Set(ctx, models.SettingsPatch{Version: &v})
	if err != nil {
		return err
	}
	printlnFn(a.styles().Success.Render("Design: " + string(cur.Version)))
	return nil
}
