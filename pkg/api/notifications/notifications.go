package notifications

import "github.com/PosterBridge/eposter-core/pkg/api/models"

func SnapshotUpdated(ns chan<- models.Notification, payload models.SnapshotUpdatedParams) {
	ns <- models.Notification{
		Method: models.NotificationSnapshotUpdated,
		Params: payload,
	}
}

func ConnectivityChanged(ns chan<- models.Notification, status string) {
	ns <- models.Notification{
		Method: models.NotificationConnectivityChanged,
		Params: models.ConnectivityChangedParams{Status: status},
	}
}

func SelectionPinned(ns chan<- models.Notification, id int) {
	ns <- models.Notification{
		Method: models.NotificationSelectionPinned,
		Params: models.PinnedParams{ID: id},
	}
}

func SelectionUnpinned(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationSelectionUnpinned,
	}
}
