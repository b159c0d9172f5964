/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package schema implements the JSON message records exchanged over the
CII and TS text channels: CII, TimelineOption, SetupData, Timestamp,
ControlTimestamp and AptEptLpt.

Every optional wire field is represented with Field[T], a tagged
three-state value (omitted from the JSON object entirely, present with
a JSON null, or present with a value) rather than overloading Go's
zero value, since the wire protocol distinguishes "absent" from
"explicitly null" (a CII field that's never been set versus one a
server has deliberately cleared).

Clock tick values and wall-clock times are serialised as JSON strings
of decimal digits, not JSON numbers, so a tick count outside the range
a JSON number can represent without precision loss survives a
round-trip; AptEptLpt's earliest/latest wall-clock times additionally
accept the literal tokens "plusinfinity" and "minusinfinity".
*/
package schema
