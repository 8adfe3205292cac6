// Package sqs forwards actions to an SQS FIFO queue instead of calling the
// job service directly. Fleet gateways drain the queue server-side. The
// dedupe ID carries the idempotency key and the group ID carries the job ID,
// so redelivery is absorbed by the queue and per-job order is preserved.
package sqs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/internal/awsconn"
)

// Client implements actionbox.Client on top of an SQS FIFO queue.
type Client struct {
	queueURL string
	client   *awssqs.Client
}

// NewClient creates an SQS-backed client. endpoint may point at LocalStack;
// leave it empty for real AWS.
func NewClient(ctx context.Context, region, endpoint, queueURL string) (*Client, error) {
	client, err := awsconn.NewSQS(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{
		queueURL: queueURL,
		client:   client,
	}, nil
}

// envelope is the queue message body.
type envelope struct {
	Kind    actionbox.Kind `json:"kind"`
	JobID   string         `json:"job_id"`
	Payload any            `json:"payload"`
}

// CreateSubmission implements actionbox.Client.
func (c *Client) CreateSubmission(ctx context.Context, key string, p actionbox.SubmissionPayload) (actionbox.Receipt, error) {
	return c.send(ctx, key, envelope{Kind: actionbox.KindSubmission, JobID: p.Job, Payload: p})
}

// CreateComment implements actionbox.Client.
func (c *Client) CreateComment(ctx context.Context, key string, p actionbox.CommentPayload) (actionbox.Receipt, error) {
	return c.send(ctx, key, envelope{Kind: actionbox.KindComment, JobID: p.Job, Payload: p})
}

// StartJob implements actionbox.Client.
func (c *Client) StartJob(ctx context.Context, key string, p actionbox.StartJobPayload) (actionbox.Receipt, error) {
	return c.send(ctx, key, envelope{Kind: actionbox.KindStartJob, JobID: p.Job, Payload: p})
}

func (c *Client) send(ctx context.Context, key string, env envelope) (actionbox.Receipt, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return actionbox.Receipt{}, err
	}
	out, err := c.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:               aws.String(c.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageDeduplicationId: aws.String(key),
		MessageGroupId:         aws.String(env.JobID),
	})
	if err != nil {
		return actionbox.Receipt{}, err
	}
	receipt := actionbox.Receipt{ServerTime: time.Now().UTC()}
	if out.MessageId != nil {
		receipt.ServerID = *out.MessageId
	}
	return receipt, nil
}
