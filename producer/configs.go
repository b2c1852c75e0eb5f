package producer

// DefaultMaxRecords caps RecordCount when Config.MaxRecords is zero.
const DefaultMaxRecords = 1000

// Config selects and configures the Invoker.
type Config struct {
	// Mode is ModeLambda or ModeLocal.
	Mode string `envconfig:"PRODUCER_MODE" default:"lambda"`

	// FunctionName is the Lambda function invoked in ModeLambda.
	FunctionName string `envconfig:"PRODUCER_LAMBDA"`

	// LocalstackHostname, when set, sends Lambda calls to http://<host>.
	LocalstackHostname string `envconfig:"LOCALSTACK_HOSTNAME"`

	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	MaxRecords int `envconfig:"PRODUCER_MAX_RECORDS" default:"1000"`
}
