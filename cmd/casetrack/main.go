package main

import (
	"context"

	"casetrack-backend/cmd/casetrack/commands"
	"casetrack-backend/lib/util/serviceutil"

	// courts work in Asia/Kolkata, hosts without zoneinfo still need it
	_ "time/tzdata"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
