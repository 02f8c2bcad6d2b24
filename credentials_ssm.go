package sheetwatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMParameterPrefix marks a credential value that names an AWS Systems
// Manager parameter, e.g. ssm:///pullus/sheetwatch/google-credentials.
const SSMParameterPrefix = "ssm://"

// SSMGetParameterClient is the subset of *ssm.Client used to load credentials.
type SSMGetParameterClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveCredentials is ParseCredentials extended with SSM parameter values.
// newClient is only called for values with the SSMParameterPrefix.
func ResolveCredentials(ctx context.Context, value string, newClient func(context.Context) (SSMGetParameterClient, error)) (*Credentials, error) {
	name, ok := ssmParameterName(value)
	if !ok {
		return ParseCredentials(value)
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, &CredentialError{Form: CredentialsFormSSM, Err: err}
	}
	return LoadSSMCredentials(ctx, client, name)
}

// LoadSSMCredentials reads a (usually SecureString) parameter holding the
// service account JSON, raw or base64 encoded.
func LoadSSMCredentials(ctx context.Context, client SSMGetParameterClient, name string) (*Credentials, error) {
	slog.DebugContext(ctx, "get credentials parameter", "name", name)
	output, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, &CredentialError{Form: CredentialsFormSSM, Err: fmt.Errorf("get parameter %s: %w", name, err)}
	}
	if output.Parameter == nil || strings.TrimSpace(aws.ToString(output.Parameter.Value)) == "" {
		return nil, &CredentialError{Form: CredentialsFormSSM, Err: fmt.Errorf("parameter %s is empty", name)}
	}
	v, err := loadServiceAccountValidator()
	if err != nil {
		return nil, err
	}
	bs := []byte(unquoteCredentialsValue(*output.Parameter.Value))
	account, err := v.parse(bs)
	if err != nil {
		decoded, ok := decodeBase64Credentials(string(bs))
		if !ok {
			return nil, &CredentialError{Form: CredentialsFormSSM, Err: fmt.Errorf("parameter %s: %w", name, err)}
		}
		account, err = v.parse(decoded)
		if err != nil {
			return nil, &CredentialError{Form: CredentialsFormSSM, Err: fmt.Errorf("parameter %s: %w", name, err)}
		}
		bs = decoded
	}
	return &Credentials{Form: CredentialsFormSSM, Path: name, JSON: bs, Account: account}, nil
}

func ssmParameterName(value string) (string, bool) {
	name, ok := strings.CutPrefix(unquoteCredentialsValue(value), SSMParameterPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
