// Package caldav publishes schedule events to a calendar on a CalDAV server.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"studyplan/internal/export"
	"studyplan/internal/models"
)

// ICloudEndpoint is the CalDAV root of iCloud calendars.
const ICloudEndpoint = "https://caldav.icloud.com/"

// userAgentTransport identifies requests made by this program.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "studyplan/1.0")
	return t.Transport.RoundTrip(req)
}

// Client writes events into one calendar collection.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	endpoint     string
	calendarPath string
}

// Config locates the server and calendar.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
	CalendarPath string // Skips discovery when set
}

// NewClient connects to the server and resolves the calendar named in cfg.
func NewClient(ctx context.Context, logger *slog.Logger, cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = ICloudEndpoint
	}
	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{
		Timeout:   30 * time.Second,
		Transport: &userAgentTransport{Transport: http.DefaultTransport},
	}, cfg.Username, cfg.Password)

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{caldavClient: caldavClient, logger: logger, endpoint: endpoint, calendarPath: cfg.CalendarPath}
	if c.calendarPath == "" {
		logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
		calendarPath, err := c.findCalendar(ctx, cfg.CalendarName)
		if err != nil {
			return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
		}
		c.calendarPath = calendarPath
		logger.Info("Successfully found CalDAV calendar", "path", calendarPath)
	}
	return c, nil
}

// Name identifies the target in publish state: server and calendar collection.
func (c *Client) Name() string {
	return "caldav:" + strings.TrimSuffix(c.endpoint, "/") + "/" + strings.TrimPrefix(c.calendarPath, "/")
}

// CalendarPath is the collection events are written to.
func (c *Client) CalendarPath() string {
	return c.calendarPath
}

// PublishEvent creates or replaces the event stored under uid.
func (c *Client) PublishEvent(ctx context.Context, event models.ScheduleEvent, uid string) error {
	c.logger.Debug("Publishing event to CalDAV", "eventTitle", event.Title, "uid", uid)

	cal := export.NewCalendar()
	cal.Children = append(cal.Children, export.Event(event, uid, "", time.Now()))

	objectPath := path.Join(c.calendarPath, uid+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return fmt.Errorf("failed to put event on CalDAV server: %w", err)
	}

	c.logger.Info("Successfully published event to CalDAV", "eventTitle", event.Title)
	return nil
}

// DeleteEvent removes the event stored under uid.
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	objectPath := path.Join(c.calendarPath, uid+".ics")
	if err := c.caldavClient.RemoveAll(ctx, objectPath); err != nil {
		return fmt.Errorf("failed to delete event from CalDAV server: %w", err)
	}
	c.logger.Info("Deleted event from CalDAV", "uid", uid)
	return nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
