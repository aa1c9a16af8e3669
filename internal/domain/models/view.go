package models

// ViewStats maps a photo id to the number of recorded views.
type ViewStats map[string]int64
