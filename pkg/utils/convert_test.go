/*
 * Copyright (C) 2022 IBM, Inc.
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

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToFloat64(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want float64
	}{
		{int(7), 7},
		{int32(7), 7},
		{int64(7), 7},
		{uint(7), 7},
		{float32(1.5), 1.5},
		{float64(2.5), 2.5},
		{"3.5", 3.5},
	} {
		got, err := ConvertToFloat64(tc.in)
		require.NoError(t, err, "%T", tc.in)
		assert.Equal(t, tc.want, got, "%T", tc.in)
	}
}

func TestConvertToFloat64Errors(t *testing.T) {
	_, err := ConvertToFloat64("not a number")
	require.Error(t, err)
	_, err = ConvertToFloat64(struct{}{})
	require.Error(t, err)
}

func TestConvertToString(t *testing.T) {
	assert.Equal(t, "42", ConvertToString(42))
	assert.Equal(t, "x", ConvertToString("x"))
	assert.Equal(t, "", ConvertToString(nil))
	assert.Equal(t, "bytes", ConvertToString([]byte("bytes")))
}
