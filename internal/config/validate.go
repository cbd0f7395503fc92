// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance reports field errors by koanf key rather than Go name.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and the rules that span fields. Every
// problem is reported, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if err := validatorInstance().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return oops.Code("CONFIG_INVALID").Wrap(err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		problems = append(problems, "database.min_conns must not exceed database.max_conns")
	}
	switch c.Delivery.Mode {
	case "smtp":
		if c.Delivery.SMTP.Host == "" {
			problems = append(problems, "delivery.smtp.host is required when delivery.mode is smtp")
		}
	case "amqp":
		if c.Delivery.AMQP.URL == "" {
			problems = append(problems, "delivery.amqp.url is required when delivery.mode is amqp")
		}
	}
	if (c.Superuser.Username == "") != (c.Superuser.Password == "") {
		problems = append(problems, "superuser.username and superuser.password must be set together")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.token.secret"; drop the root type.
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
}

// RequireSMTP reports whether c carries enough to talk to a mail server,
// independent of delivery.mode.
func (c *Config) RequireSMTP() error {
	if c.Delivery.SMTP.Host == "" {
		return oops.Code("CONFIG_INVALID").Errorf("delivery.smtp.host is required")
	}
	return nil
}

// RequireAMQP reports whether c carries enough to reach the broker,
// independent of delivery.mode.
func (c *Config) RequireAMQP() error {
	if c.Delivery.AMQP.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("delivery.amqp.url is required")
	}
	return nil
}
