package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/bytedance/sonic"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// LambdaAPI is the part of *lambda.Client the invoker uses.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// DefaultConfigLoader loads the AWS config; replaced in tests.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// lambdaPayload is the event the producer function expects.
type lambdaPayload struct {
	TopicName     string `json:"topic_name"`
	NumberRecords int    `json:"number_records"`
	Seed          int64  `json:"seed"`
	Version       string `json:"version,omitempty"`
}

// LambdaInvoker fires the producer Lambda asynchronously.
type LambdaInvoker struct {
	client     LambdaAPI
	function   string
	maxRecords int

	observer observability.Observer
	logger   Logger
}

// NewLambdaInvoker builds a Lambda client from the default AWS config chain.
func NewLambdaInvoker(ctx context.Context, cfg Config) (*LambdaInvoker, error) {
	if cfg.FunctionName == "" {
		return nil, fmt.Errorf("producer lambda function name is required")
	}

	awsCfg, err := DefaultConfigLoader(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := lambda.NewFromConfig(awsCfg, func(o *lambda.Options) {
		if cfg.LocalstackHostname != "" {
			o.BaseEndpoint = aws.String("http://" + cfg.LocalstackHostname)
		}
	})

	return NewLambdaInvokerWithClient(client, cfg), nil
}

// NewLambdaInvokerWithClient wraps an existing client.
func NewLambdaInvokerWithClient(client LambdaAPI, cfg Config) *LambdaInvoker {
	maxRecords := cfg.MaxRecords
	if maxRecords == 0 {
		maxRecords = DefaultMaxRecords
	}
	return &LambdaInvoker{client: client, function: cfg.FunctionName, maxRecords: maxRecords}
}

// WithObserver sets the observer notified after every invocation.
func (l *LambdaInvoker) WithObserver(observer observability.Observer) *LambdaInvoker {
	l.observer = observer
	return l
}

// WithLogger sets the logger.
func (l *LambdaInvoker) WithLogger(logger Logger) *LambdaInvoker {
	l.logger = logger
	return l
}

// Invoke sends req as an Event invocation; Lambda queues it and returns.
func (l *LambdaInvoker) Invoke(ctx context.Context, req Request) error {
	start := time.Now()
	if err := req.Validate(l.maxRecords); err != nil {
		return err
	}

	payload, err := sonic.Marshal(lambdaPayload{
		TopicName:     req.Topic,
		NumberRecords: req.RecordCount,
		Seed:          req.Seed,
		Version:       req.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal lambda payload: %w", err)
	}

	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err == nil && out.FunctionError != nil {
		err = fmt.Errorf("lambda function error: %s", aws.ToString(out.FunctionError))
	}
	observe(l.observer, "invoke", req, start, int64(len(payload)), err)

	if err != nil {
		if l.logger != nil {
			l.logger.ErrorWithContext(ctx, "Producer invocation failed", err, map[string]interface{}{
				"function": l.function,
				"topic":    req.Topic,
			})
		}
		return fmt.Errorf("invoke %s: %w", l.function, err)
	}

	if l.logger != nil {
		l.logger.InfoWithContext(ctx, "Producer invoked", nil, map[string]interface{}{
			"function":     l.function,
			"topic":        req.Topic,
			"record_count": req.RecordCount,
			"status_code":  out.StatusCode,
		})
	}
	return nil
}
