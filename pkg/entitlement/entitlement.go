// Package entitlement maps subscription plans to the feature limits they
// unlock. The table is pure data: lookups have no side effects and no
// failure modes beyond an unknown plan resolving to nil.
package entitlement

import (
	"fmt"
	"strings"
)

// PlanCode identifies a subscription tier.
type PlanCode string

const (
	PlanFree     PlanCode = "FREE"
	PlanSilver   PlanCode = "SILVER"
	PlanGold     PlanCode = "GOLD"
	PlanPlatinum PlanCode = "PLATINUM"
)

// Unlimited marks a numeric entitlement with no cap (-1 chosen so the
// value survives JSON and SQL round-trips without a separate flag).
const Unlimited int64 = -1

// PaidPlans lists the plans that can be purchased, in ascending order.
var PaidPlans = []PlanCode{PlanSilver, PlanGold, PlanPlatinum}

// ParsePlan normalizes and validates a client-supplied plan code.
// Only paid plans are accepted; FREE is never a checkout target.
func ParsePlan(s string) (PlanCode, error) {
	switch PlanCode(strings.ToUpper(strings.TrimSpace(s))) {
	case PlanSilver:
		return PlanSilver, nil
	case PlanGold:
		return PlanGold, nil
	case PlanPlatinum:
		return PlanPlatinum, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
}

// ChatAccess describes the level of trainer chat available to a plan.
type ChatAccess string

const (
	ChatNone     ChatAccess = "none"
	ChatRead     ChatAccess = "read"
	ChatFull     ChatAccess = "full"
	ChatPriority ChatAccess = "priority"
)

// ContentLevel gates the workout/diet content library.
type ContentLevel string

const (
	ContentBasic    ContentLevel = "basic"
	ContentAdvanced ContentLevel = "advanced"
	ContentFull     ContentLevel = "full"
)

// AchievementLevel gates the achievement system.
type AchievementLevel string

const (
	AchievementBasic    AchievementLevel = "basic"
	AchievementExtended AchievementLevel = "extended"
	AchievementPro      AchievementLevel = "pro"
)

// ChallengeFrequency controls how often plan challenges are issued.
type ChallengeFrequency string

const (
	ChallengeMonthly  ChallengeFrequency = "monthly"
	ChallengeBiweekly ChallengeFrequency = "biweekly"
	ChallengeWeekly   ChallengeFrequency = "weekly"
)

// WearableLevel controls which wearable metrics are synced.
type WearableLevel string

const (
	WearableSteps    WearableLevel = "steps"
	WearableStandard WearableLevel = "standard"
	WearableFull     WearableLevel = "full"
)

// ExportFormat controls personal data export.
type ExportFormat string

const (
	ExportNone    ExportFormat = "none"
	ExportCSV     ExportFormat = "csv"
	ExportCSVJSON ExportFormat = "csv+json"
)

// Entitlements is the resolved feature-limit set for a plan. It is
// derived on every authorized request and never persisted, since the
// underlying plan can change between requests via an async webhook.
type Entitlements struct {
	MaxActiveAIPlans                int64              `json:"maxActiveAiPlans"`
	MaxFormFeedbackSessionsPerMonth int64              `json:"maxFormFeedbackSessionsPerMonth"`
	ProgressHistoryWindowDays       int64              `json:"progressHistoryWindowDays"`
	MaxConcurrentDietPlans          int64              `json:"maxConcurrentDietPlans"`
	TrainerChatAccess               ChatAccess         `json:"trainerChatAccess"`
	TrainerChatsPerMonth            int64              `json:"trainerChatsPerMonth"`
	LiveSessionsPerMonth            int64              `json:"liveSessionsPerMonth"`
	ContentAccessLevel              ContentLevel       `json:"contentAccessLevel"`
	AchievementLevel                AchievementLevel   `json:"achievementLevel"`
	ChallengeFrequency              ChallengeFrequency `json:"challengeFrequency"`
	WearableIntegrationLevel        WearableLevel      `json:"wearableIntegrationLevel"`
	DataExport                      ExportFormat       `json:"dataExport"`
}

// planTable holds the static plan-to-entitlement mapping. Values mirror
// the product's published tier matrix; changing a row here changes what
// every subscriber of that tier may do on the next request.
var planTable = map[PlanCode]Entitlements{
	PlanSilver: {
		MaxActiveAIPlans:                1,
		MaxFormFeedbackSessionsPerMonth: 0,
		ProgressHistoryWindowDays:       30,
		MaxConcurrentDietPlans:          1,
		TrainerChatAccess:               ChatRead,
		TrainerChatsPerMonth:            0,
		LiveSessionsPerMonth:            0,
		ContentAccessLevel:              ContentBasic,
		AchievementLevel:                AchievementBasic,
		ChallengeFrequency:              ChallengeMonthly,
		WearableIntegrationLevel:        WearableSteps,
		DataExport:                      ExportNone,
	},
	PlanGold: {
		MaxActiveAIPlans:                3,
		MaxFormFeedbackSessionsPerMonth: 2,
		ProgressHistoryWindowDays:       180,
		MaxConcurrentDietPlans:          3,
		TrainerChatAccess:               ChatFull,
		TrainerChatsPerMonth:            10,
		LiveSessionsPerMonth:            1,
		ContentAccessLevel:              ContentAdvanced,
		AchievementLevel:                AchievementExtended,
		ChallengeFrequency:              ChallengeBiweekly,
		WearableIntegrationLevel:        WearableStandard,
		DataExport:                      ExportCSV,
	},
	PlanPlatinum: {
		MaxActiveAIPlans:                Unlimited,
		MaxFormFeedbackSessionsPerMonth: 8,
		ProgressHistoryWindowDays:       Unlimited,
		MaxConcurrentDietPlans:          Unlimited,
		TrainerChatAccess:               ChatPriority,
		TrainerChatsPerMonth:            Unlimited,
		LiveSessionsPerMonth:            4,
		ContentAccessLevel:              ContentFull,
		AchievementLevel:                AchievementPro,
		ChallengeFrequency:              ChallengeWeekly,
		WearableIntegrationLevel:        WearableFull,
		DataExport:                      ExportCSVJSON,
	},
}

// Lookup resolves a plan to its entitlements. FREE and unrecognized
// codes return nil; callers must treat absence as most restrictive.
func Lookup(plan PlanCode) *Entitlements {
	ent, ok := planTable[plan]
	if !ok {
		return nil
	}
	// Return a copy so callers can't mutate the shared table.
	return &ent
}
