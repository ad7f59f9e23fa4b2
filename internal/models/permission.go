package models

import "strings"

// Permission is a closed set of permission keys. String values match the keys stored
// in the permissions table and issued in tokens, so mixed naming styles are kept as-is.
type Permission string

const (
	PermStudentView   Permission = "student:view"
	PermStudentManage Permission = "student:manage"
	PermStudentUpdate Permission = "student:update"

	PermActivityView          Permission = "activity:view"
	PermActivityCreate        Permission = "activity:create"
	PermActivityUpdate        Permission = "activity:update"
	PermActivityManage        Permission = "activity:manage"
	PermActivityViewUpper     Permission = "ACTIVITY_VIEW"
	PermActivityCheckinManage Permission = "ACTIVITY_CHECKIN_MANAGE"

	PermNotificationView Permission = "NOTIFICATION_VIEW"
	PermAIAssistantView  Permission = "AI_ASSISTANT_VIEW"

	PermDashboardView        Permission = "dashboard:view"
	PermTeacherDashboardView Permission = "teacher-dashboard:view"
	PermCentersView          Permission = "centers:view"
	PermFinanceView          Permission = "finance:view"
	PermMarketingView        Permission = "marketing:view"
	PermSystemView           Permission = "system:view"

	PermEnrollmentOverviewView      Permission = "enrollment:overview:view"
	PermEnrollmentPlansView         Permission = "enrollment:plans:view"
	PermEnrollmentApplicationsView  Permission = "enrollment:applications:view"
	PermEnrollmentConsultationsView Permission = "enrollment:consultations:view"
	PermEnrollmentAnalyticsView     Permission = "enrollment:analytics:view"
	PermEnrollmentInterviewManage   Permission = "ENROLLMENT_INTERVIEW_MANAGE"
	PermEnrollmentInterviewView     Permission = "ENROLLMENT_INTERVIEW_VIEW"

	PermPerformanceView     Permission = "principal:performance:view"
	PermPerformanceStats    Permission = "principal:performance:stats"
	PermPerformanceRankings Permission = "principal:performance:rankings"
	PermPerformanceDetails  Permission = "principal:performance:details"
	PermPerformanceTrends   Permission = "principal:performance:trends"
	PermPerformanceExport   Permission = "principal:performance:export"
	PermPerformanceGoals    Permission = "principal:performance:goals"

	PermTeachingCenterView Permission = "TEACHING_CENTER_VIEW"
	PermTaskView           Permission = "TASK_VIEW"
	PermTaskManage         Permission = "TASK_MANAGE"

	PermParentView       Permission = "parent:view"
	PermParentManage     Permission = "parent:manage"
	PermParentCenterView Permission = "PARENT_CENTER_VIEW"
	PermChildrenView     Permission = "CHILDREN_VIEW"
	PermAssessmentView   Permission = "ASSESSMENT_VIEW"
)

// PrincipalPerformancePrefix grants principals every performance key.
const PrincipalPerformancePrefix = "principal:performance:"

var allPermissions = []Permission{
	PermStudentView, PermStudentManage, PermStudentUpdate,
	PermActivityView, PermActivityCreate, PermActivityUpdate, PermActivityManage,
	PermActivityViewUpper, PermActivityCheckinManage,
	PermNotificationView, PermAIAssistantView,
	PermDashboardView, PermTeacherDashboardView, PermCentersView, PermFinanceView,
	PermMarketingView, PermSystemView,
	PermEnrollmentOverviewView, PermEnrollmentPlansView, PermEnrollmentApplicationsView,
	PermEnrollmentConsultationsView, PermEnrollmentAnalyticsView,
	PermEnrollmentInterviewManage, PermEnrollmentInterviewView,
	PermPerformanceView, PermPerformanceStats, PermPerformanceRankings, PermPerformanceDetails,
	PermPerformanceTrends, PermPerformanceExport, PermPerformanceGoals,
	PermTeachingCenterView, PermTaskView, PermTaskManage,
	PermParentView, PermParentManage, PermParentCenterView, PermChildrenView,
	PermAssessmentView,
}

var permissionIndex = func() map[string]Permission {
	index := make(map[string]Permission, len(allPermissions))
	for _, p := range allPermissions {
		index[string(p)] = p
	}
	return index
}()

// LookupPermission resolves a raw key to its typed constant.
func LookupPermission(key string) (Permission, bool) {
	p, ok := permissionIndex[key]
	return p, ok
}

func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// RolePermissions holds the built-in grants each role has without a database lookup.
var RolePermissions = map[UserRole][]Permission{
	RolePrincipal: {
		PermEnrollmentOverviewView, PermEnrollmentPlansView, PermEnrollmentApplicationsView,
		PermEnrollmentConsultationsView, PermEnrollmentAnalyticsView,
		PermTeacherDashboardView, PermDashboardView, PermCentersView, PermActivityView,
		PermFinanceView, PermMarketingView, PermSystemView,
		PermPerformanceView, PermPerformanceStats, PermPerformanceRankings,
		PermPerformanceDetails, PermPerformanceTrends, PermPerformanceExport, PermPerformanceGoals,
	},
	RoleTeacher: {
		PermEnrollmentInterviewManage, PermEnrollmentInterviewView,
		PermActivityView, PermActivityManage,
		PermTeachingCenterView, PermTaskView, PermTaskManage,
	},
	RoleParent: {
		PermParentView, PermParentManage, PermParentCenterView, PermChildrenView,
		PermAssessmentView, PermActivityViewUpper, PermNotificationView, PermAIAssistantView,
	},
}

// RoleAllows reports whether the role's built-in whitelist covers the permission.
func RoleAllows(role UserRole, p Permission) bool {
	if role == RolePrincipal && strings.HasPrefix(string(p), PrincipalPerformancePrefix) {
		return true
	}
	for _, granted := range RolePermissions[role] {
		if granted == p {
			return true
		}
	}
	return false
}
