// Package authz holds the single authorization predicate consulted by every
// mutating operation. Decisions are made per request against the freshly
// loaded user row; nothing here is cached.
package authz

import "github.com/KMohnishM/SIH-25/internal/db/models"

type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionEditDocument    Action = "edit_document"
	ActionArchiveDocument Action = "archive_document"
	ActionEditComment     Action = "edit_comment"
	ActionDeleteComment   Action = "delete_comment"
	ActionViewInternal    Action = "view_internal_comment"
	ActionManageUsers     Action = "manage_users"
	ActionSendNotice      Action = "send_notification"
)

// Resource carries the entity a decision is about. Workflow and document
// actions require Document; comment actions require Comment.
type Resource struct {
	Document *models.Document
	Comment  *models.Comment
}

// Decide returns whether actor may perform action on the resource.
//
// Admins are allowed everything. Executives may drive the approval workflow
// across departments; every other role only within its own department.
// Ownership governs edits: documents belong to their uploader, comments to
// their author.
func Decide(actor *models.User, action Action, res Resource) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}

	switch action {
	case ActionApprove, ActionReject, ActionRequestRevision:
		if res.Document == nil {
			return false
		}
		if actor.Role == models.RoleExecutive {
			return true
		}
		return string(actor.Department) == res.Document.Department

	case ActionEditDocument, ActionArchiveDocument:
		if res.Document == nil {
			return false
		}
		return res.Document.UploadedBy == actor.ID

	case ActionEditComment, ActionDeleteComment:
		if res.Comment == nil {
			return false
		}
		return res.Comment.AuthorID == actor.ID

	case ActionViewInternal:
		if actor.Role == models.RoleExecutive {
			return true
		}
		return res.Comment != nil && res.Comment.AuthorID == actor.ID

	case ActionManageUsers, ActionSendNotice:
		return false
	}

	return false
}

// CanViewInternalComments reports whether actor sees internal comments in
// list responses, independent of any single comment's authorship.
func CanViewInternalComments(actor *models.User) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleExecutive
}
