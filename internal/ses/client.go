// Package ses binds the identity registry and the mail sender to Amazon Simple Email Service.
package ses

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// API is the subset of the SES client used here. *ses.Client satisfies it.
type API interface {
	ListIdentities(
		ctx context.Context, in *ses.ListIdentitiesInput, optFns ...func(*ses.Options),
	) (*ses.ListIdentitiesOutput, error)
	GetIdentityVerificationAttributes(
		ctx context.Context, in *ses.GetIdentityVerificationAttributesInput, optFns ...func(*ses.Options),
	) (*ses.GetIdentityVerificationAttributesOutput, error)
	VerifyEmailIdentity(
		ctx context.Context, in *ses.VerifyEmailIdentityInput, optFns ...func(*ses.Options),
	) (*ses.VerifyEmailIdentityOutput, error)
	SendEmail(
		ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options),
	) (*ses.SendEmailOutput, error)
}

// Config captures the parameters required to reach SES.
type Config struct {
	Region   string
	Endpoint string
}

// Client implements identity.Registry and mail.Sender.
type Client struct {
	api API
}

// New loads the default AWS credential chain pinned to cfg.Region and builds a Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("ses region is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	api := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(api), nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// ListEmailIdentities returns every registered email-address identity, across all pages.
func (c *Client) ListEmailIdentities(ctx context.Context) ([]string, error) {
	paginator := ses.NewListIdentitiesPaginator(c.api, &ses.ListIdentitiesInput{
		IdentityType: types.IdentityTypeEmailAddress,
	})
	var identities []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translate("list identities", err, workflow.ErrInvalidOperation)
		}
		identities = append(identities, page.Identities...)
	}
	return identities, nil
}

// VerificationStatus fetches the verification attributes of email.
func (c *Client) VerificationStatus(ctx context.Context, email string) (workflow.VerificationState, error) {
	out, err := c.api.GetIdentityVerificationAttributes(ctx, &ses.GetIdentityVerificationAttributesInput{
		Identities: []string{email},
	})
	if err != nil {
		return workflow.Unknown, translate("get verification attributes", err, workflow.ErrInvalidOperation)
	}
	attrs, ok := out.VerificationAttributes[email]
	if !ok {
		return workflow.Unknown, nil
	}
	return StateOf(attrs.VerificationStatus), nil
}

// RequestVerification asks SES to email a verification link to email.
func (c *Client) RequestVerification(ctx context.Context, email string) error {
	_, err := c.api.VerifyEmailIdentity(ctx, &ses.VerifyEmailIdentityInput{
		EmailAddress: aws.String(email),
	})
	if err != nil {
		return translate("verify email identity", err, workflow.ErrVerificationRequestFailed)
	}
	return nil
}

// Deliver sends msg from from to every address in to and returns the SES message ID.
func (c *Client) Deliver(ctx context.Context, from string, to []string, msg workflow.EmailMessage) (string, error) {
	out, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: content(msg.Subject, msg.Charset),
			Body: &types.Body{
				Html: content(msg.HTMLBody, msg.Charset),
				Text: content(msg.TextBody, msg.Charset),
			},
		},
	})
	if err != nil {
		return "", translate("send email", err, workflow.ErrDeliveryRejected)
	}
	return aws.ToString(out.MessageId), nil
}

// StateOf maps an SES verification status onto VerificationState.
func StateOf(status types.VerificationStatus) workflow.VerificationState {
	switch status {
	case types.VerificationStatusSuccess:
		return workflow.Verified
	case types.VerificationStatusPending:
		return workflow.Pending
	default:
		return workflow.Unknown
	}
}

func content(data, charset string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String(charset)}
}

// translate maps an SES error onto the workflow taxonomy. statusKind is used when SES answered
// with a non-success HTTP status; no response at all is a connection failure.
func translate(op string, err error, statusKind error) error {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return fmt.Errorf("%w: %s: %s", workflow.ErrMessageRejected, op, aws.ToString(rejected.Message))
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return fmt.Errorf("%w: %s: status %d %s: %w",
			statusKind, op, code, http.StatusText(code), err)
	}
	return fmt.Errorf("%w: %s: %w", workflow.ErrConnectionFailed, op, err)
}
