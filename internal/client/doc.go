// Package client talks to a running serlink bridge over its JSON API.
//
//	c := client.NewClient("192.168.1.50:8080")
//	snap, err := c.GetSettings(ctx)
//	...
//	result := c.UpdateAndVerify(ctx, snap, nil)
//	if !result.Success {
//	    fmt.Println(client.GetTroubleshootingHint(result.Error))
//	}
//
// Requests are retried with exponential backoff on network errors and 5xx
// responses. Rejected settings (400, 422) are never retried.
package client
