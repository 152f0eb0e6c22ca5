/*
 * Copyright (C) 2024 IBM, Inc.
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
 *
 */

package pipeline

import (
	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encryptor is the securing hook boundary: a real cipher can be substituted
// without touching any caller. The default passes payloads through untouched.
type Encryptor interface {
	Encrypt(payload []byte) ([]byte, error)
}

type noopEncryptor struct{}

func (noopEncryptor) Encrypt(payload []byte) ([]byte, error) {
	return payload, nil
}

// NewNoopEncryptor returns the pass-through default, acceptable outside
// production deployments.
func NewNoopEncryptor() Encryptor {
	return noopEncryptor{}
}

// secure runs the securing stage: the encryption hook when enabled, then the
// configured payload compression. Record contents stay available downstream;
// the processed payload travels with the batch for sinks that forward it.
func (p *Processor) secure(b *dataset.Batch) (*dataset.Batch, error) {
	if !p.cfg.EncryptionEnabled && p.cfg.CompressionAlgorithm != api.CompressionSnappy {
		return b, nil
	}
	payload, err := json.Marshal(b.Records)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling batch payload")
	}
	if p.cfg.EncryptionEnabled {
		payload, err = p.encryptor.Encrypt(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encrypting batch payload")
		}
		b.Encrypted = true
	}
	if p.cfg.CompressionAlgorithm == api.CompressionSnappy {
		b.Compressed = snappy.Encode(nil, payload)
	}
	return b, nil
}
