// Package discovery announces and finds serlink bridges with mDNS.
//
// A bridge advertises its settings page as an "_http._tcp" service with
// TXT records marking it as serlink:
//
//	svc=serlink
//	path=/
//	ports=4
//	version=v1.2.0
//
// Scanning browses "_http._tcp" and keeps only entries carrying
// svc=serlink, so printers and other web UIs on the network are skipped.
//
// # Usage Example
//
//	stop, err := discovery.Advertise(discovery.Announcement{Port: 8080, Ports: 4})
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
//	bridges, err := discovery.Scan(ctx, 3*time.Second)
//	for _, b := range bridges {
//	    fmt.Println(b, b.BaseURL())
//	}
package discovery
