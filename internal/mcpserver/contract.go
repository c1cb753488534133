package mcpserver

// EventFormatContract is the canonical event structure served to MCP
// clients. Producers are expected to read it before recording events.
const EventFormatContract = `# Munin Event Format

Every journal entry is a JSON object with the following fields:

` + "```json" + `
{
  "type": "health_snapshot",
  "namespace": "monitoring",
  "origin": "watchdog",
  "actor": "agent-7",
  "payload": {
    "cpu_percent": 41.5,
    "status": "ok"
  },
  "timestamp": "2026-08-26T12:00:00Z"
}
` + "```" + `

## Fields

- **type** (required): lowercase snake_case event kind, e.g. ` + "`health_snapshot`" + `,
  ` + "`alert`" + `, ` + "`intervention`" + `, ` + "`config_change`" + `.
- **namespace** (optional): logical grouping for the producing subsystem.
- **origin** (optional): name of the component that recorded the event.
- **actor** (optional): identifier of the agent or user acting. Omitted from
  the stored record when empty.
- **payload** (optional): a JSON object carrying event-specific data. Keep it
  flat where possible; nested objects are allowed.
- **timestamp** (optional): RFC 3339 UTC. Filled in automatically when omitted.

## Rules

1. Never reuse a ` + "`type`" + ` for semantically different events.
2. Do not put free-form prose in ` + "`type`" + `; use ` + "`payload.message`" + `.
3. Events are append-only. There is no update or delete.
4. The journal's ` + "`general`" + ` section is maintained by the store itself;
   producers never write it directly.
`
