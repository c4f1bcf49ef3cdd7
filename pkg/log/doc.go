// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

/*
Package log implements per-source leveled logging.

Every package creates its own logger with NewLogger("source"). Messages
of severity info and above pass through if their source is enabled and
their severity is at or above the global level. Debug messages pass
through only for sources with debugging enabled.

Sources and debugging are controlled on the command line:

  -logger-level warning
  -logger-sources on:*,off:report
  -logger-debug memsim,prompt

The backend emitting messages is selected with -logger (fmt or klog).
*/
package log
