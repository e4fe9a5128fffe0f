package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/youtstadi/BotShkiperaPredlozhka/dialog"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
)

// Callback tokens carried by inline buttons. Item actions encode the item id
// directly, so the review-channel buttons are the only routing state needed.
const (
	tokenAdminPanel = "admin_panel"
	tokenSave       = "admin_save"
	tokenClearQueue = "admin_clear_queue"
	tokenStats      = "admin_stats"
	tokenCancel     = "cancel_input"

	prefixApproveComment = "approve_comment_"
	prefixRejectComment  = "reject_comment_"
	prefixApprove        = "approve_"
	prefixReject         = "reject_"
	prefixSetField       = "set_"
	prefixRoster         = "roster_"
)

type actionKind int

const (
	actApprove actionKind = iota
	actReject
	actApproveComment
	actRejectComment
	actAdminPanel
	actSetField
	actRosterEdit
	actSave
	actClearQueue
	actStats
	actCancel
)

type action struct {
	kind   actionKind
	itemID int64
	field  string
	role   settings.Role
	op     dialog.RosterOp
}

func approveToken(id int64) string {
	return prefixApprove + strconv.FormatInt(id, 10)
}

func rejectToken(id int64) string {
	return prefixReject + strconv.FormatInt(id, 10)
}

func approveCommentToken(id int64) string {
	return prefixApproveComment + strconv.FormatInt(id, 10)
}

func rejectCommentToken(id int64) string {
	return prefixRejectComment + strconv.FormatInt(id, 10)
}

func setFieldToken(field string) string {
	return prefixSetField + field
}

func rosterToken(op dialog.RosterOp, role settings.Role) string {
	return prefixRoster + string(op) + "_" + string(role)
}

func parseItemID(s, prefix string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed item id in token %q", s)
	}
	return id, nil
}

func parseToken(s string) (action, error) {
	switch s {
	case tokenAdminPanel:
		return action{kind: actAdminPanel}, nil
	case tokenSave:
		return action{kind: actSave}, nil
	case tokenClearQueue:
		return action{kind: actClearQueue}, nil
	case tokenStats:
		return action{kind: actStats}, nil
	case tokenCancel:
		return action{kind: actCancel}, nil
	}

	// comment prefixes nest inside the plain ones, check them first
	switch {
	case strings.HasPrefix(s, prefixApproveComment):
		id, err := parseItemID(s, prefixApproveComment)
		return action{kind: actApproveComment, itemID: id}, err
	case strings.HasPrefix(s, prefixRejectComment):
		id, err := parseItemID(s, prefixRejectComment)
		return action{kind: actRejectComment, itemID: id}, err
	case strings.HasPrefix(s, prefixApprove):
		id, err := parseItemID(s, prefixApprove)
		return action{kind: actApprove, itemID: id}, err
	case strings.HasPrefix(s, prefixReject):
		id, err := parseItemID(s, prefixReject)
		return action{kind: actReject, itemID: id}, err
	case strings.HasPrefix(s, prefixSetField):
		field := strings.TrimPrefix(s, prefixSetField)
		if _, _, ok := settings.FieldBounds(field); !ok {
			return action{}, fmt.Errorf("unknown settings field in token %q", s)
		}
		return action{kind: actSetField, field: field}, nil
	case strings.HasPrefix(s, prefixRoster):
		rest := strings.TrimPrefix(s, prefixRoster)
		op, roleStr, ok := strings.Cut(rest, "_")
		if !ok {
			return action{}, fmt.Errorf("malformed roster token %q", s)
		}
		act := action{kind: actRosterEdit, op: dialog.RosterOp(op), role: settings.Role(roleStr)}
		if act.op != dialog.RosterAdd && act.op != dialog.RosterRemove {
			return action{}, fmt.Errorf("unknown roster op in token %q", s)
		}
		if act.role != settings.RoleModerator && act.role != settings.RoleAdmin {
			return action{}, fmt.Errorf("unknown role in token %q", s)
		}
		return act, nil
	}
	return action{}, fmt.Errorf("unknown action token %q", s)
}
