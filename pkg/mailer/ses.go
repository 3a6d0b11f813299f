package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/angelmondragon/inventory-backend/pkg/config"
)

// test seams
var (
	loadDefaultAWSConfig   = awsconfig.LoadDefaultConfig
	newSESClientFromConfig = sesv2.NewFromConfig
)

type sesAPI interface {
	SendEmail(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESRelay hands the composed MIME message to Amazon SES as raw content, so
// headers and attachments go out exactly as Compose built them.
type SESRelay struct {
	client           sesAPI
	configurationSet string
}

// NewSESRelay uses static credentials when configured and the default AWS
// credential chain otherwise.
func NewSESRelay(ctx context.Context, cfg config.MailConfig) (*SESRelay, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SESRegion),
	}
	if cfg.SESAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.SESAccessKeyID,
			cfg.SESSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newSESClientFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.SESEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SESEndpoint)
		}
	})
	return &SESRelay{client: client, configurationSet: cfg.SESConfigurationSet}, nil
}

func (r *SESRelay) Send(ctx context.Context, from string, to []string, raw []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: to},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	if r.configurationSet != "" {
		input.ConfigurationSetName = aws.String(r.configurationSet)
	}
	if _, err := r.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}
