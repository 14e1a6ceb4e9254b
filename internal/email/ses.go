package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

// SESOptions configures outbound mail. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
type SESOptions struct {
	Region           string
	Sender           string
	ReplyTo          string
	ConfigurationSet string
	AccessKeyID      string
	SecretAccessKey  string
}

// SESClient sends plain-text reservation mail through SESv2.
type SESClient struct {
	client *sesv2.Client
	opts   SESOptions
}

func NewSESClient(ctx context.Context, opts SESOptions) (*SESClient, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("ses region is required")
	}
	if opts.Sender == "" {
		return nil, fmt.Errorf("ses sender is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESClient{client: sesv2.NewFromConfig(awsCfg), opts: opts}, nil
}

func (c *SESClient) Send(ctx context.Context, recipient, subject, body string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("ses client is not initialized")
	}
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}

	if _, err := c.client.SendEmail(ctx, c.buildInput(recipient, subject, body)); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("subject", subject).
			Str("region", c.opts.Region).
			Msg("Failed to send SES email")
		return fmt.Errorf("send ses email: %w", err)
	}
	return nil
}

func (c *SESClient) buildInput(recipient, subject, body string) *sesv2.SendEmailInput {
	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{recipient}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		FromEmailAddress: aws.String(c.opts.Sender),
	}
	if c.opts.ReplyTo != "" {
		input.ReplyToAddresses = []string{c.opts.ReplyTo}
	}
	if c.opts.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(c.opts.ConfigurationSet)
	}
	return input
}
