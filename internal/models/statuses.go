package models

type UserStatus string
type UserRole string
type OTPPurpose string
type JobCategory string
type JobStatus string
type ExperienceCategory string
type ExperienceStatus string
type ReferralStatus string
type TargetType string
type UploadPurpose string
type UploadStatus string
type Industry string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	UserRoleUser   UserRole = "user"
	UserRoleEditor UserRole = "editor"
	UserRoleAdmin  UserRole = "admin"

	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposeResetPassword OTPPurpose = "reset_password"

	JobCategoryCampus JobCategory = "campus"
	JobCategoryIntern JobCategory = "intern"
	JobCategorySocial JobCategory = "social"

	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"

	ExperienceCategoryInterview   ExperienceCategory = "interview"
	ExperienceCategoryWrittenTest ExperienceCategory = "written_test"
	ExperienceCategoryCareer      ExperienceCategory = "career"
	ExperienceCategoryOffer       ExperienceCategory = "offer"

	ExperienceStatusDraft     ExperienceStatus = "draft"
	ExperienceStatusPublished ExperienceStatus = "published"
	ExperienceStatusHidden    ExperienceStatus = "hidden"

	ReferralStatusActive  ReferralStatus = "active"
	ReferralStatusExpired ReferralStatus = "expired"

	TargetTypeJob        TargetType = "job"
	TargetTypeExperience TargetType = "experience"
	TargetTypeReferral   TargetType = "referral"

	UploadPurposeAvatar          UploadPurpose = "avatar"
	UploadPurposeExperienceCover UploadPurpose = "experience_cover"
	UploadPurposeExperienceImage UploadPurpose = "experience_image"
	UploadPurposeCompanyLogo     UploadPurpose = "company_logo"

	UploadStatusPending   UploadStatus = "pending"
	UploadStatusConfirmed UploadStatus = "confirmed"

	IndustryBank       Industry = "bank"
	IndustrySecurities Industry = "securities"
	IndustryFund       Industry = "fund"
	IndustryInsurance  Industry = "insurance"
	IndustryConsulting Industry = "consulting"
	IndustryOther      Industry = "other"
)

func (r UserRole) IsStaff() bool {
	return r == UserRoleEditor || r == UserRoleAdmin
}

func (t TargetType) Valid() bool {
	switch t {
	case TargetTypeJob, TargetTypeExperience, TargetTypeReferral:
		return true
	}
	return false
}

func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeSignup, OTPPurposeLogin, OTPPurposeResetPassword:
		return true
	}
	return false
}

func (c JobCategory) Valid() bool {
	switch c {
	case JobCategoryCampus, JobCategoryIntern, JobCategorySocial:
		return true
	}
	return false
}

func (c ExperienceCategory) Valid() bool {
	switch c {
	case ExperienceCategoryInterview, ExperienceCategoryWrittenTest, ExperienceCategoryCareer, ExperienceCategoryOffer:
		return true
	}
	return false
}

func (p UploadPurpose) Valid() bool {
	switch p {
	case UploadPurposeAvatar, UploadPurposeExperienceCover, UploadPurposeExperienceImage, UploadPurposeCompanyLogo:
		return true
	}
	return false
}
