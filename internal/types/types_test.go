// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_Roles(t *testing.T) {
	tests := []struct {
		role       string
		admin      bool
		references bool
	}{
		{AdminRole, true, true},
		{EditorRole, false, true},
		{UserRole, false, true},
		{"", false, false},
		{"guest", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			u := UserContext{SystemRole: tt.role}
			assert.Equal(t, tt.admin, u.IsAdmin())
			assert.Equal(t, tt.references, u.CanReadReferences())
		})
	}
}
