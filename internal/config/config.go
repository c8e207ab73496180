// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"retailagent/internal/logging"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvFileVar names the variable pointing at an optional .env file.
const EnvFileVar = "ENV_FILE"

// Table describes the DynamoDB table a handler reads and writes.
type Table struct {
	Name         string `envconfig:"DYNAMODB_TABLE" required:"true"`
	PartitionKey string `envconfig:"DYNAMODB_PK" required:"true"`
	SortKey      string `envconfig:"DYNAMODB_SK" required:"true"`
	// Endpoint overrides the DynamoDB endpoint, e.g. the local devserver.
	Endpoint string `envconfig:"DYNAMODB_ENDPOINT"`
}

// Handler is the configuration of a Lambda action group handler.
type Handler struct {
	Table
	Log logging.Config `envconfig:"LOG"`
}

// Server is the configuration of the local development server.
type Server struct {
	Addr      string         `envconfig:"ADDR" default:":4566"`
	// DSN selects the Postgres store; without it tables live in memory.
	DSN       string         `envconfig:"PG_DSN"`
	SeedFile  string         `envconfig:"SEED_FILE"`
	Namespace string         `envconfig:"NAMESPACE" default:"default"`
	Log       logging.Config `envconfig:"LOG"`

	// Tables served by the in-process invoke endpoints.
	SalesTable InvokeTable `envconfig:"SALES"`
	StoreTable InvokeTable `envconfig:"STORE"`
}

// InvokeTable is a table of the local table service an action group runs
// against. The group is not served when Name is empty.
type InvokeTable struct {
	Name         string `envconfig:"DYNAMODB_TABLE"`
	PartitionKey string `envconfig:"DYNAMODB_PK" default:"customer_id"`
	SortKey      string `envconfig:"DYNAMODB_SK"`
}

func (t InvokeTable) Enabled() bool { return t.Name != "" }

func (t InvokeTable) Validate() error {
	if t.Enabled() && t.SortKey == "" {
		return fmt.Errorf("table %s: sort key is not set", t.Name)
	}
	return nil
}

func MustLoad[T any](prefix string) *T {
	conf, err := Load[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// Load exports the optional .env file into the environment and then
// processes T with envconfig.
func Load[T any](prefix string) (*T, error) {
	if path := strings.TrimSpace(os.Getenv(EnvFileVar)); path != "" {
		if err := exportEnvironment(path); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment never overrides a variable that is already set.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		name := strings.ToUpper(k)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
