// Package meet provisions video-meeting rooms for scheduled lessons and
// course sessions. The engine treats the meeting provider as an external
// service: provisioning failures are logged by callers and never block a
// state transition.
package meet

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tutorhub/pkg/client"
)

// Meeting holds the credentials of a provisioned room. JoinURL is what
// students see; HostURL stays teacher-only.
type Meeting struct {
	MeetingID string `json:"meeting_id"`
	JoinURL   string `json:"join_url"`
	HostURL   string `json:"host_url"`
}

type Provisioner interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time, durationMin int) (*Meeting, error)
	EndMeeting(ctx context.Context, meetingID string) error
}

type httpProvisioner struct {
	client *client.HttpClient
}

// NewHTTPProvisioner talks to the meeting provider's REST API.
func NewHTTPProvisioner(baseURL, authToken string) Provisioner {
	return &httpProvisioner{
		client: client.NewHttpClient(baseURL).WithAuthToken(authToken),
	}
}

type createMeetingRequest struct {
	Topic       string    `json:"topic"`
	StartTime   time.Time `json:"start_time"`
	DurationMin int       `json:"duration_min"`
}

func (p *httpProvisioner) CreateMeeting(ctx context.Context, topic string, start time.Time, durationMin int) (*Meeting, error) {
	resp, err := p.client.POST(ctx, "/v1/meetings", createMeetingRequest{
		Topic:       topic,
		StartTime:   start,
		DurationMin: durationMin,
	})
	if err != nil {
		return nil, fmt.Errorf("meeting provider unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meeting provider returned status %d", resp.StatusCode)
	}

	var meeting Meeting
	if err := resp.DecodeJSON(&meeting); err != nil {
		return nil, fmt.Errorf("failed to decode meeting response: %w", err)
	}
	return &meeting, nil
}

func (p *httpProvisioner) EndMeeting(ctx context.Context, meetingID string) error {
	resp, err := p.client.DELETE(ctx, "/v1/meetings/"+meetingID)
	if err != nil {
		return fmt.Errorf("meeting provider unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("meeting provider returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopProvisioner returns empty credentials. Used in tests and local runs
// without a meeting provider.
type NoopProvisioner struct{}

func (NoopProvisioner) CreateMeeting(context.Context, string, time.Time, int) (*Meeting, error) {
	return &Meeting{}, nil
}

func (NoopProvisioner) EndMeeting(context.Context, string) error { return nil }
