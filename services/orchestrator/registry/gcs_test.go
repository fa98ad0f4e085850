// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import "testing"

func TestSplitGCSURL(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{
			name:       "simple object",
			source:     "gs://my-bucket/tools.yaml",
			wantBucket: "my-bucket",
			wantObject: "tools.yaml",
		},
		{
			name:       "nested object path",
			source:     "gs://my-bucket/configs/prod/tools.yaml",
			wantBucket: "my-bucket",
			wantObject: "configs/prod/tools.yaml",
		},
		{
			name:    "missing object",
			source:  "gs://my-bucket",
			wantErr: true,
		},
		{
			name:    "missing bucket",
			source:  "gs:///tools.yaml",
			wantErr: true,
		},
		{
			name:    "trailing slash only",
			source:  "gs://my-bucket/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := splitGCSURL(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitGCSURL(%q) error = nil, want error", tt.source)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitGCSURL(%q) error = %v", tt.source, err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("splitGCSURL(%q) = (%q, %q), want (%q, %q)",
					tt.source, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}
