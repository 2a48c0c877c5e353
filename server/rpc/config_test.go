/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		validConf := Config{Port: 8080, PingInterval: "30s", WriteTimeout: "10s"}
		assert.NoError(t, validConf.Validate())

		conf1 := validConf
		conf1.Port = -1
		assert.ErrorIs(t, conf1.Validate(), ErrInvalidRPCPort)

		conf2 := validConf
		conf2.CertFile = "noSuchCertFile"
		assert.ErrorIs(t, conf2.Validate(), ErrInvalidCertFile)

		conf3 := validConf
		conf3.KeyFile = "noSuchKeyFile"
		assert.ErrorIs(t, conf3.Validate(), ErrInvalidKeyFile)

		conf4 := validConf
		conf4.PingInterval = "hour"
		assert.ErrorIs(t, conf4.Validate(), ErrInvalidPingInterval)

		conf5 := validConf
		conf5.WriteTimeout = "-1s"
		assert.ErrorIs(t, conf5.Validate(), ErrInvalidWriteTimeout)

		conf6 := validConf
		conf6.MaxMessageBytes = -1
		assert.ErrorIs(t, conf6.Validate(), ErrInvalidMaxMessageBytes)
	})

	t.Run("defaults test", func(t *testing.T) {
		conf := Config{}
		assert.Equal(t, DefaultPingInterval, conf.ParsePingInterval())
		assert.Equal(t, DefaultWriteTimeout, conf.ParseWriteTimeout())
		assert.Equal(t, int64(DefaultMaxMessageBytes), conf.maxMessageBytes())

		conf = Config{PingInterval: "5s", WriteTimeout: "1s", MaxMessageBytes: 10}
		assert.Equal(t, 5*time.Second, conf.ParsePingInterval())
		assert.Equal(t, time.Second, conf.ParseWriteTimeout())
		assert.Equal(t, int64(10), conf.maxMessageBytes())
	})

	t.Run("origin test", func(t *testing.T) {
		assert.True(t, (&Config{}).originAllowed("http://any"))

		conf := Config{AllowedOrigins: []string{"https://lexdesk.app"}}
		assert.True(t, conf.originAllowed("https://LEXDESK.app"))
		assert.True(t, conf.originAllowed(""))
		assert.False(t, conf.originAllowed("https://evil.example"))

		conf.AllowedOrigins = append(conf.AllowedOrigins, "*")
		assert.True(t, conf.originAllowed("https://evil.example"))
	})
}
