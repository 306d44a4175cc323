/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package queue

import (
	"context"
	"fmt"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQS caps long-poll waits at 20 seconds.
const maxWaitTime = 20 * time.Second

// sqsApi is the slice of the SQS client the service uses.
type sqsApi interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Service wraps the two signer queues: envelopes out for co-signing,
// co-signed envelopes back in. Delivery is at-least-once; downstream
// idempotency relies on hash.value uniqueness.
type Service struct {
	client   sqsApi
	waitTime time.Duration
}

func NewService(ctx context.Context, cfg models.QueueConfig) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS configuration: %w", err)
	}

	return newService(sqs.NewFromConfig(awsCfg), cfg.WaitTime), nil
}

func newService(client sqsApi, waitTime time.Duration) *Service {
	if waitTime <= 0 || waitTime > maxWaitTime {
		waitTime = maxWaitTime
	}
	return &Service{client: client, waitTime: waitTime}
}

// SendEnvelope serializes the envelope as canonical JSON and enqueues it.
func (s *Service) SendEnvelope(ctx context.Context, queueUrl string, env *chain.Envelope) error {
	body, err := chain.CanonicalMarshal(env)
	if err != nil {
		return fmt.Errorf("unable to serialize envelope: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueUrl),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("unable to send envelope to queue: %w", err)
	}

	zap.L().Info("Envelope enqueued",
		zap.String("queue_url", queueUrl),
		zap.String("hash", env.Hash.Value),
		zap.Int("entries", len(env.Payload.Transactions)))

	return nil
}

// Receive long-polls the queue and returns 0..N messages with their receipt
// handles.
func (s *Service) Receive(ctx context.Context, queueUrl string) ([]models.QueueMessage, error) {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueUrl),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     int32(s.waitTime.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to receive from queue: %w", err)
	}

	messages := make([]models.QueueMessage, 0, len(out.Messages))
	for _, msg := range out.Messages {
		messages = append(messages, models.QueueMessage{
			Body:          aws.ToString(msg.Body),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}

	return messages, nil
}

// Delete permanently removes a message. Only called after a successful
// commit.
func (s *Service) Delete(ctx context.Context, queueUrl, receiptHandle string) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueUrl),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("unable to delete message from queue: %w", err)
	}
	return nil
}
