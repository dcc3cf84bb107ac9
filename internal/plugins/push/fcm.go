package push

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FCM sends Android notifications through the FCM HTTP v1 API.
type FCM struct {
	projectID string
	service   *fcm.Service
}

// NewFCM authenticates with a service account file. Extra options are
// appended, which lets tests point the client at a local endpoint.
func NewFCM(ctx context.Context, cfg FCMConfig, opts ...option.ClientOption) (*FCM, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("fcm project id is required")
	}
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "read fcm credentials")
		}
		creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
		if err != nil {
			return nil, errors.Wrap(err, "parse fcm credentials")
		}
		clientOpts = append(clientOpts, option.WithTokenSource(creds.TokenSource))
	}
	clientOpts = append(clientOpts, opts...)
	service, err := fcm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create fcm service")
	}
	return &FCM{projectID: cfg.ProjectID, service: service}, nil
}

func (f *FCM) Send(ctx context.Context, token string, n domain.Notification) error {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: n.Title,
				Body:  n.Body,
			},
			Data: n.Data,
			Android: &fcm.AndroidConfig{
				Priority: "HIGH",
				Notification: &fcm.AndroidNotification{
					Sound: "default",
				},
			},
		},
	}
	_, err := f.service.Projects.Messages.Send("projects/"+f.projectID, req).Context(ctx).Do()
	return errors.Wrap(err, "fcm send")
}
