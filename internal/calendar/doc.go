// Package calendar wraps the Google Calendar v3 Events API for the user's
// primary calendar.
//
// The client does not manage credentials. Callers pass an *http.Client that
// already authorizes requests, typically from google.TokenCache.Client:
//
//	httpClient, err := cache.Client(ctx)
//	if err != nil {
//		return err
//	}
//	client, err := calendar.NewClient(ctx, httpClient)
//	if err != nil {
//		return err
//	}
//	events, err := client.ListEvents(ctx, calendar.ListOptions{
//		TimeMin: "2025-01-01T00:00:00Z",
//		TimeMax: "2025-01-08T00:00:00Z",
//	})
package calendar
