// Package google publishes schedule events to Google Calendar.
package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"studyplan/internal/models"
	"studyplan/internal/session"
)

const defaultCalendarID = "primary"

// eventColors maps backend color tags to Google Calendar event color IDs.
var eventColors = map[string]string{
	"red":    "11",
	"yellow": "5",
	"blue":   "9",
	"green":  "10",
	"purple": "3",
	"gray":   "8",
}

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
}

// NewClient creates a new Google Calendar client for the account whose token
// was stored by the auth flow in tokenDir.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, credentialsFile, tokenDir, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := session.LoadToken(TokenPath(tokenDir, accountName))
	if err != nil {
		if accounts, _ := GetTokenAccounts(tokenDir); len(accounts) > 0 {
			return nil, fmt.Errorf("could not load token for account %s (authenticated accounts: %s): %w", accountName, strings.Join(accounts, ", "), err)
		}
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'google-auth' command first", accountName, err)
	}

	return NewClientWithHTTP(ctx, logger, config.Client(ctx, token), "", calendarID)
}

// NewClientWithHTTP builds a client on an already authenticated HTTP client.
// An empty endpoint selects the public API.
func NewClientWithHTTP(ctx context.Context, logger *slog.Logger, httpClient *http.Client, endpoint, calendarID string) (*CalendarClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	return &CalendarClient{service: service, logger: logger, calendarID: calendarID}, nil
}

// Name identifies the target in publish state.
func (c *CalendarClient) Name() string {
	return "google:" + c.calendarID
}

// PublishEvent imports the event under uid. Importing an existing iCalUID
// updates the event in place.
func (c *CalendarClient) PublishEvent(ctx context.Context, event models.ScheduleEvent, uid string) error {
	c.logger.Debug("Publishing event to Google Calendar", "eventTitle", event.Title, "uid", uid, "calendarID", c.calendarID)

	created, err := c.service.Events.Import(c.calendarID, toGoogleEvent(event, uid)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to import event: %w", err)
	}

	c.logger.Info("Successfully published event to Google Calendar", "eventTitle", event.Title, "id", created.Id)
	return nil
}

// DeleteEvent removes the event imported under uid. An event that is already
// gone is not an error.
func (c *CalendarClient) DeleteEvent(ctx context.Context, uid string) error {
	events, err := c.service.Events.List(c.calendarID).ICalUID(uid).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to look up event %s: %w", uid, err)
	}
	for _, item := range events.Items {
		if err := c.service.Events.Delete(c.calendarID, item.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", uid, err)
		}
		c.logger.Info("Deleted event from Google Calendar", "id", item.Id, "uid", uid)
	}
	return nil
}

// toGoogleEvent converts a schedule event to a Google Calendar event.
func toGoogleEvent(event models.ScheduleEvent, uid string) *calendar.Event {
	ge := &calendar.Event{
		ICalUID:     uid,
		Summary:     event.Title,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: event.StartTime.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.EndTime.UTC().Format(time.RFC3339)},
	}
	if id, ok := eventColors[event.Color]; ok {
		ge.ColorId = id
	}
	return ge
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret, credentialsFile string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret, credentialsFile)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes explicit client credentials over a credentials.json file.
func getOAuthConfig(clientID, clientSecret, credentialsFile string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%s not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or a credentials file", credentialsFile)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath returns the token file of an account, e.g. token-personal.json.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, fmt.Sprintf("token-%s.json", accountName))
}

// GetTokenAccounts lists the accounts with a stored token in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
