package domain

type ListState string

const (
	ListLoading ListState = "loading"
	ListError   ListState = "error"
	ListReady   ListState = "ready"
)

type ListErrorKind string

const (
	ListPermissionDenied ListErrorKind = "permission_denied"
	ListMissingIndex     ListErrorKind = "missing_index"
	ListGeneric          ListErrorKind = "generic"
)

type ListFailure struct {
	Kind    ListErrorKind `json:"kind"`
	Message string        `json:"message"`
}

// CallToAction is shown in place of rows when a list is empty.
type CallToAction struct {
	Message string `json:"message"`
	Label   string `json:"label"`
	Href    string `json:"href"`
}

// ListView is the terminal state of a list fetch. Exactly one of Rows (ready)
// or Failure (error) is meaningful.
type ListView[T any] struct {
	State   ListState     `json:"state"`
	Rows    []T           `json:"rows"`
	Empty   *CallToAction `json:"empty,omitempty"`
	Failure *ListFailure  `json:"error,omitempty"`
}

type DonorRow struct {
	UID           string `json:"uid"`
	Name          string `json:"name"`
	BloodGroup    string `json:"bloodGroup"`
	Location      string `json:"location"`
	ContactNumber string `json:"contactNumber"`
}

type RequestRow struct {
	ID            string  `json:"id"`
	PatientName   string  `json:"patientName"`
	RequesterName string  `json:"requesterName,omitempty"`
	BloodGroup    string  `json:"bloodGroup"`
	Location      string  `json:"location"`
	HospitalName  *string `json:"hospitalName,omitempty"`
	ContactInfo   string  `json:"contactInfo"`
	Urgency       string  `json:"urgency"`
	Notes         *string `json:"notes,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	RelativeAge   string  `json:"relativeTime"`
}
