/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version exposes the build version of the PanelPlay server.
package version

// Version is the semantic version of the application. It may be overridden at
// build time via -ldflags "-X panelplay/internal/version.Version=v1.2.3".
var Version = "0.1.0-dev"

// String returns the human-readable version string.
func String() string {
	return "panelplay " + Version
}
