package api

// REST endpoint paths, relative to the configured base URL.
const (
	EndpointAdminLogin   = "/login/admin-access-token/"
	EndpointRefreshToken = "/login/refresh-token/"
	EndpointVerifyToken  = "/login/verify-token/"
	EndpointLogout       = "/login/logout/"
	EndpointMemberLogin  = "/login/member-code/"

	EndpointItems            = "/lucky-spin/lucky-spin-items/"
	EndpointSequences        = "/lucky-spin/lucky-spin-sequences/"
	EndpointReorderSequences = "/lucky-spin/lucky-spin-sequences/change-spin-sequences/"

	EndpointMembers = "/member/members/"
	EndpointHealth  = "/health"
)

func EndpointItemDetail(uuid string) string { return EndpointItems + uuid + "/" }

func EndpointItemArchive(uuid string) string { return EndpointItemDetail(uuid) + "archive/" }

func EndpointSequenceDetail(uuid string) string { return EndpointSequences + uuid + "/" }

func EndpointMemberDetail(uuid string) string { return EndpointMembers + uuid + "/" }

func EndpointOneSpin(uuid string) string { return "/member/" + uuid + "/one-spin/" }

func EndpointTenSpin(uuid string) string { return "/member/" + uuid + "/ten-spin/" }
