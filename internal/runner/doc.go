// Package runner is the daemon's driver loop around the schedule library.
//
// It owns a single wall-clock scheduler, registers the jobs described in
// the config, and polls for due work on a fixed tick. Two schedule
// syntaxes are accepted per job:
//
//   - the human grammar "every [N [to M]] UNIT [at TIME] [in TZ]
//     [until WHEN]", mapped onto the schedule builder; and
//   - cron expressions ("cron:*/5 * * * *", "@hourly"), parsed with
//     robfig/cron and driven by the same poll loop.
//
// Commands are spawned through a token-bucket rate limiter so a
// misconfigured job set cannot fork-bomb the host; a denied token skips
// the run with a warning. Every execution is appended to the run-history
// store and failures are forwarded to the notifier.
package runner
