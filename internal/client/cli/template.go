package cli

import (
	"text/template"
	"time"
)

var templateFuncs = template.FuncMap{
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format(time.RFC3339)
	},
	"tsp": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "never"
		}
		return t.Format(time.RFC3339)
	},
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).Parse(text))
}

var (
	statusTmpl    = mustTemplate("status", statusTemplate)
	topologyTmpl  = mustTemplate("topology", topologyTemplate)
	conflictsTmpl = mustTemplate("conflicts", conflictsTemplate)
	failedTmpl    = mustTemplate("failed", failedTemplate)
	relayTmpl     = mustTemplate("relay", relayTemplate)
)

const usageTemplate = `
MeshSync Client

Usage:
  meshsync [OPTIONS] COMMAND [ARGS]

Options:
  -version                  Show version information
  -config PATH              Path to config file (YAML or TOML)
  -db PATH                  Path to local database (overrides db_path)
  -relay URL                Relay websocket URL (overrides relay_url)
  -device ID                Device identifier (overrides device_id)
  -passphrase-file PATH     Path to file containing mesh passphrase

Passphrase Priority (highest to lowest, only with encryption_enabled):
  1. MESHSYNC_PASSPHRASE environment variable
  2. -passphrase-file (file path)
  3. Interactive prompt (fallback)

Commands:
  run                                       Connect to the relay and sync until interrupted
  submit [-priority P] <kind> <coll> <id> [json]
                                            Queue a local create, update or delete
  get <collection> <doc-id>                 Show current document content
  status                                    Show sync statistics
  topology                                  Show mesh peers and the primary device
  conflicts [-all]                          List open (or all) conflicts
  resolve [-payload JSON|-delete] [-notes TEXT] <conflict-id> [winner-op-id]
                                            Resolve a conflict (primary only)
  failed                                    List operations that exhausted retries
  retry <op-id>                             Requeue a failed operation
  promote <device-id>                       Make a device the primary
  relay [-frames N]                         Show relay health, devices and recent frames
  device-id                                 Generate a new device identifier

Examples:
  meshsync -config meshsync.yaml run
  meshsync submit -priority critical create invoices inv-1 '{"total":120}'
  meshsync submit delete products p-7
  meshsync resolve 2f9c1e... 01HV3K...
  meshsync promote tablet-2
`

const statusTemplate = `
=== Sync Status ===

Pending:        {{ .PendingCount }}
Synced:         {{ .SyncedCount }}
Failed:         {{ .FailedCount }}
Open conflicts: {{ .ConflictCount }}
Relay pending:  {{ .RelayPendingCount }}
Received:       {{ .ReceivedCount }}
Last sync:      {{ tsp .LastSyncAt }}
{{- if .AvgLatency }}
Avg latency:    {{ .AvgLatency }}
{{- end }}
Traffic:        {{ .BytesUp }} bytes up, {{ .BytesDown }} bytes down
{{- if gt .FailedCount 0 }}

Run 'meshsync failed' to inspect failed operations.
{{- end }}
{{- if gt .ConflictCount 0 }}

Run 'meshsync conflicts' to review open conflicts.
{{- end }}
`

const topologyTemplate = `
=== Mesh Topology ===

Primary: {{ if .Primary }}{{ .Primary }}{{ else }}(none){{ end }}
Epoch:   {{ .Epoch }}
Updated: {{ ts .LastUpdated }}

{{- if eq (len .Peers) 0 }}

No peers discovered yet.
{{- else }}

Found {{ len .Peers }} peer(s):
{{- range .Peers }}
- {{ .DeviceID }}{{ if .Name }} ({{ .Name }}){{ end }}
   Role:      {{ .Role }}
   Status:    {{ .Status }}
   Last seen: {{ ts .LastSeen }}
   {{- if .LinkType }}
   Link:      {{ .LinkType }}
   {{- end }}
   {{- if .LatencyMs }}
   Latency:   {{ .LatencyMs }} ms
   {{- end }}
{{- end }}
{{- end }}
`

const conflictsTemplate = `
=== Conflicts ===

{{- if eq (len .) 0 }}
No conflicts found.
{{ else }}
Found {{ len . }} conflict(s):
{{- range . }}
- {{ .ID }}
   Document:   {{ .Collection }}/{{ .DocumentID }}
   Strategy:   {{ .Strategy }}
   Detected:   {{ ts .DetectedAt }}
   Operations: {{ range $i, $id := .OperationIDs }}{{ if $i }}, {{ end }}{{ $id }}{{ end }}
   {{- if .Resolution }}
   Resolution: {{ .Resolution }}{{ if .WinnerID }} (winner {{ .WinnerID }}){{ end }}
   {{- else }}
   Resolution: pending
   {{- end }}
   {{- if .Notes }}
   Notes:      {{ .Notes }}
   {{- end }}
{{- end }}
{{- end }}
`

const failedTemplate = `
=== Failed Operations ===

{{- if eq (len .) 0 }}
No failed operations.
{{ else }}
Found {{ len . }} failed operation(s):
{{- range . }}
- {{ .ID }}
   Operation: {{ .Kind }} {{ .Collection }}/{{ .DocumentID }}
   Priority:  {{ .Priority }}
   Attempts:  {{ .Attempts }}
   {{- if .RelayedFrom }}
   Relayed:   from {{ .RelayedFrom }}
   {{- end }}
   {{- if .LastError }}
   Error:     {{ .LastError }}
   {{- end }}
{{- end }}

Use 'meshsync retry <op-id>' to requeue an operation.
{{- end }}
`

const relayTemplate = `
=== Relay ===

Status:    {{ .Health.Status }}{{ if .Health.Version }} (version {{ .Health.Version }}){{ end }}
Connected: {{ .Health.Connected }}

{{- if eq (len .Devices) 0 }}

No devices registered.
{{- else }}

Devices:
{{- range .Devices }}
- {{ .DeviceID }} {{ if .Online }}online{{ else }}offline{{ end }}, last seen {{ ts .LastSeen }}
{{- end }}
{{- end }}
{{- if .Frames }}

Recent frames:
{{- range .Frames }}
- {{ ts .ReceivedAt }} {{ .Type }} {{ .FromDevice }} -> {{ if .ToDevice }}{{ .ToDevice }}{{ else }}*{{ end }} ({{ .Size }} bytes)
{{- end }}
{{- end }}
`
