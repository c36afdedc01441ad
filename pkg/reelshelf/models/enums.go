package models

// Orientation is the category a video is filed under
type Orientation string

const (
	OrientationStraight Orientation = "straight"
	OrientationGay      Orientation = "gay"
	OrientationBi       Orientation = "bi"
	OrientationTrans    Orientation = "trans"
	OrientationSFW      Orientation = "sfw"
)

// Orientations lists every known orientation in display order
var Orientations = []Orientation{
	OrientationStraight,
	OrientationGay,
	OrientationBi,
	OrientationTrans,
	OrientationSFW,
}

// Valid reports whether o is one of the known orientations
func (o Orientation) Valid() bool {
	for _, known := range Orientations {
		if o == known {
			return true
		}
	}
	return false
}

// Access is the visibility state of a bookmark
type Access string

const (
	AccessPrivate Access = "private"
	AccessPublic  Access = "public"
	AccessAdult   Access = "adult"
)

// Valid reports whether a is one of the known access states
func (a Access) Valid() bool {
	switch a {
	case AccessPrivate, AccessPublic, AccessAdult:
		return true
	}
	return false
}

// ReportType is the reason a bookmark was reported
type ReportType string

const (
	ReportBrokenSource      ReportType = "broken_source"
	ReportBrokenThumbnail   ReportType = "broken_thumbnail"
	ReportBrokenEmbed       ReportType = "broken_embed"
	ReportWrongOrientation  ReportType = "wrong_orientation"
	ReportRequestModeration ReportType = "request_moderation"
)

// Valid reports whether t is one of the known report types
func (t ReportType) Valid() bool {
	switch t {
	case ReportBrokenSource, ReportBrokenThumbnail, ReportBrokenEmbed,
		ReportWrongOrientation, ReportRequestModeration:
		return true
	}
	return false
}

// Resolution records how a moderator closed a report
type Resolution string

const (
	ResolutionNone     Resolution = ""
	ResolutionApproved Resolution = "approved"
	ResolutionDenied   Resolution = "denied"
)

// AuditAction is the kind of moderator action recorded in the audit log
type AuditAction string

const (
	AuditEditVideo     AuditAction = "edit_video"
	AuditEditBookmark  AuditAction = "edit_bookmark"
	AuditAssignReport  AuditAction = "assign_report"
	AuditApproveReport AuditAction = "approve_report"
	AuditDenyReport    AuditAction = "deny_report"
)

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationFollow        NotificationType = "follow"
	NotificationBookmarkSave  NotificationType = "bookmark_save"
	NotificationNewContent    NotificationType = "new_content"
	NotificationSystem        NotificationType = "system"
	NotificationVideoLike     NotificationType = "video_like"
	NotificationVideoBookmark NotificationType = "video_bookmark"
)

// TargetKind discriminates what a notification points at
type TargetKind string

const (
	TargetNone     TargetKind = ""
	TargetUser     TargetKind = "user"
	TargetVideo    TargetKind = "video"
	TargetBookmark TargetKind = "bookmark"
)
