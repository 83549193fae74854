package gdrive

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// newServices builds Drive and Sheets clients from a long-lived refresh
// token. Access tokens are minted and renewed by the token source.
func newServices(ctx context.Context, cfg OAuthConfig) (*drive.Service, *sheets.Service, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			drive.DriveScope,
			sheets.SpreadsheetsScope,
		},
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	driveSvc, err := drive.NewService(ctx, option.WithTokenSource(ts))

	if err != nil {
		return nil, nil, fmt.Errorf("create drive service: %w", err)
	}

	sheetsSvc, err := sheets.NewService(ctx, option.WithTokenSource(ts))

	if err != nil {
		return nil, nil, fmt.Errorf("create sheets service: %w", err)
	}

	return driveSvc, sheetsSvc, nil
}
