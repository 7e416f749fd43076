// Copyright 2025 Poiesic Systems
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

// Package search ranks provider organizations against a free-text need.
//
// The query is embedded once and compared with the stored embedding of every
// specialty an organization holds. An organization scores the best cosine
// similarity among its specialties. Results can be restricted to a
// macrocategory, cut at a minimum score and optionally boosted when all query
// words appear verbatim in the organization's name or description.
package search
