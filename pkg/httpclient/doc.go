// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient builds the HTTP client used to talk to the version
// manifest service and the artifact CDN.
//
// The client enforces TLS 1.3, sets a User-Agent on every request, and logs
// each round trip at debug level with credentials stripped from the URL.
// Requests are never retried; a failed download surfaces to the caller.
//
// Usage:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "mcrun/" + version
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
package httpclient
