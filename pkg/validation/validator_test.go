package validation

import (
	"strings"
	"testing"
)

// TestValidateRoutingRequest tests routing replace request validation
func TestValidateRoutingRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         RoutingRequest
		expectError bool
		errorField  string
	}{
		{
			name: "Valid routing request",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: "SMT-01"},
					{AreaCode: "ICT-01", Predecessors: []string{"SMT-01"}},
				},
			},
			expectError: false,
		},
		{
			name: "Single area routing",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: "PACK-01"},
				},
			},
			expectError: false,
		},
		{
			name:        "Empty steps - valid (clears the routing)",
			req:         RoutingRequest{Steps: []StepRequest{}},
			expectError: false,
		},
		{
			name:        "Nil steps - valid",
			req:         RoutingRequest{Steps: nil},
			expectError: false,
		},
		{
			name: "Empty area code - invalid",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: ""},
				},
			},
			expectError: true,
			errorField:  "AreaCode",
		},
		{
			name: "Area code with invalid characters",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: "SMT 01<script>"},
				},
			},
			expectError: true,
			errorField:  "Steps",
		},
		{
			name: "Area code too long - invalid",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: strings.Repeat("A", 51)},
				},
			},
			expectError: true,
			errorField:  "AreaCode",
		},
		{
			name: "Predecessor with invalid characters",
			req: RoutingRequest{
				Steps: []StepRequest{
					{AreaCode: "ICT-01", Predecessors: []string{"SMT 01"}},
				},
			},
			expectError: true,
			errorField:  "Steps",
		},
		{
			name: "Too many areas - invalid",
			req: RoutingRequest{
				Steps: makeSteps(251),
			},
			expectError: true,
			errorField:  "Steps",
		},
		{
			name: "Exactly 250 areas - valid",
			req: RoutingRequest{
				Steps: makeSteps(250),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoutingRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}

			if tt.expectError && err != nil && tt.errorField != "" {
				if !strings.Contains(err.Error(), tt.errorField) {
					t.Errorf("Expected error for field %s, but got: %v", tt.errorField, err)
				}
			}
		})
	}
}

// TestValidateRoutingRequest_Nil tests the nil request guard
func TestValidateRoutingRequest_Nil(t *testing.T) {
	if err := ValidateRoutingRequest(nil); err == nil {
		t.Error("Expected error for nil request")
	}
}

// TestValidatePredecessorsRequest tests predecessor update validation
func TestValidatePredecessorsRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         PredecessorsRequest
		expectError bool
	}{
		{
			name:        "Valid predecessors",
			req:         PredecessorsRequest{Predecessors: []string{"SMT-01", "AOI-01"}},
			expectError: false,
		},
		{
			name:        "Empty predecessors - valid",
			req:         PredecessorsRequest{Predecessors: []string{}},
			expectError: false,
		},
		{
			name:        "Nil predecessors - valid",
			req:         PredecessorsRequest{},
			expectError: false,
		},
		{
			name:        "Empty predecessor code - invalid",
			req:         PredecessorsRequest{Predecessors: []string{""}},
			expectError: true,
		},
		{
			name:        "Predecessor with space - invalid",
			req:         PredecessorsRequest{Predecessors: []string{"SMT 01"}},
			expectError: true,
		},
		{
			name:        "Too many predecessors - invalid",
			req:         PredecessorsRequest{Predecessors: makeCodes(51)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePredecessorsRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

// TestValidateLoginRequest tests login request validation
func TestValidateLoginRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         LoginRequest
		expectError bool
	}{
		{
			name:        "Valid login",
			req:         LoginRequest{Username: "planner", Password: "secret123"},
			expectError: false,
		},
		{
			name:        "Missing username",
			req:         LoginRequest{Password: "secret123"},
			expectError: true,
		},
		{
			name:        "Missing password",
			req:         LoginRequest{Username: "planner"},
			expectError: true,
		},
		{
			name:        "Username too long",
			req:         LoginRequest{Username: strings.Repeat("a", 65), Password: "secret123"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLoginRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

// TestValidateModelID tests model identifier validation
func TestValidateModelID(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		expectError bool
	}{
		{
			name:        "Valid simple id",
			id:          "FX-2024",
			expectError: false,
		},
		{
			name:        "Valid id with dots",
			id:          "MX500.rev2",
			expectError: false,
		},
		{
			name:        "Valid id with underscore",
			id:          "model_a1",
			expectError: false,
		},
		{
			name:        "Empty id",
			id:          "",
			expectError: true,
		},
		{
			name:        "Id with space",
			id:          "FX 2024",
			expectError: true,
		},
		{
			name:        "Id with slash",
			id:          "FX/2024",
			expectError: true,
		},
		{
			name:        "Id starting with hyphen",
			id:          "-FX2024",
			expectError: true,
		},
		{
			name:        "Id too long",
			id:          strings.Repeat("a", 65),
			expectError: true,
		},
		{
			name:        "Id at max length",
			id:          strings.Repeat("a", 64),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelID(tt.id)

			if tt.expectError && err == nil {
				t.Errorf("Expected error for id '%s' but got nil", tt.id)
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error for id '%s' but got: %v", tt.id, err)
			}
		})
	}
}

// TestValidateAreaCode tests area code validation
func TestValidateAreaCode(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		expectError bool
	}{
		{
			name:        "Valid code",
			code:        "SMT-01",
			expectError: false,
		},
		{
			name:        "Valid code with dot",
			code:        "ICT.A",
			expectError: false,
		},
		{
			name:        "Empty code",
			code:        "",
			expectError: true,
		},
		{
			name:        "Code with space",
			code:        "SMT 01",
			expectError: true,
		},
		{
			name:        "Code too long",
			code:        strings.Repeat("A", 51),
			expectError: true,
		},
		{
			name:        "Code at max length",
			code:        strings.Repeat("A", 50),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAreaCode(tt.code)

			if tt.expectError && err == nil {
				t.Errorf("Expected error for code '%s' but got nil", tt.code)
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error for code '%s' but got: %v", tt.code, err)
			}
		})
	}
}

// Helper functions

func makeSteps(n int) []StepRequest {
	steps := make([]StepRequest, n)
	for i := range steps {
		steps[i].AreaCode = "AREA-" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('a'+i/676))
	}
	return steps
}

func makeCodes(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = "AREA-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return codes
}
