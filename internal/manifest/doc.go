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

// Package manifest resolves server versions against the launcher's
// version manifest (v2).
//
// A Resolver fetches the manifest, Resolve picks one entry for a Selector,
// and FetchMetadata follows that entry's URL to the per-version metadata
// holding the server jar's Download descriptor:
//
//	r := manifest.NewResolver(client, manifest.DefaultURL, logger)
//	m, err := r.FetchManifest(ctx)
//	v, err := manifest.Resolve(m, manifest.LatestRelease())
//	meta, err := r.FetchMetadata(ctx, v)
//
// Resolve is pure; only FetchManifest and FetchMetadata touch the network.
package manifest
