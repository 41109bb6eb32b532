package group

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
)

// userRef is the body for adding a user member.
type userRef struct {
	UserID uint64 `json:"user_id" form:"user_id"`
}

// groupRef is the body for adding a subgroup member.
type groupRef struct {
	GroupID uint `json:"group_id" form:"group_id"`
}

// AddUser adds a user as a direct member of the group. A duplicate pair is
// rejected by the store's composite key and surfaces as a conflict.
func (s *Service) AddUser(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	ref := new(userRef)
	if err := c.BodyParser(ref); err != nil || ref.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	var user models.User
	if err := s.db.First(&user, ref.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}

		log.Error().Err(err).Uint64("user_id", ref.UserID).Msg("Failed to load user")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	membership := models.GroupUser{GroupID: group.ID, UserID: ref.UserID}
	if err := s.db.Create(&membership).Error; err != nil {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "User is already a member of this group"})
	}

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// RemoveUser removes a user's direct membership of the group.
func (s *Service) RemoveUser(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	memberID, err := strconv.ParseUint(c.Params("memberID"), 10, 64)
	if err != nil || memberID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	result := s.db.Where("group_id = ? AND user_id = ?", group.ID, memberID).
		Delete(&models.GroupUser{})
	if result.Error != nil {
		log.Error().Err(result.Error).Uint("group_id", group.ID).Uint64("user_id", memberID).
			Msg("Failed to remove user membership")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).
			JSON(fiber.Map{"error": "User is not a member of this group"})
	}

	return c.JSON(fiber.Map{"status": "removed"})
}

// AddSubgroup adds another group as a member of the group. Self-membership
// and duplicate pairs are rejected; cycles are allowed by the store and
// handled by the traversal layer.
func (s *Service) AddSubgroup(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	ref := new(groupRef)
	if err := c.BodyParser(ref); err != nil || ref.GroupID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if ref.GroupID == group.ID {
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "A group cannot contain itself"})
	}

	var member models.Group
	if err := s.db.First(&member, ref.GroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrGroupNotFound})
		}

		log.Error().Err(err).Uint("group_id", ref.GroupID).Msg("Failed to load member group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	membership := models.GroupGroup{GroupID: group.ID, MemberID: ref.GroupID}
	if err := s.db.Create(&membership).Error; err != nil {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Group is already a member of this group"})
	}

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// RemoveSubgroup removes a group's membership of the group.
func (s *Service) RemoveSubgroup(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	memberID, err := strconv.ParseUint(c.Params("memberID"), 10, 32)
	if err != nil || memberID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	result := s.db.Where("group_id = ? AND member_id = ?", group.ID, uint(memberID)).
		Delete(&models.GroupGroup{})
	if result.Error != nil {
		log.Error().Err(result.Error).Uint("group_id", group.ID).Uint64("member_id", memberID).
			Msg("Failed to remove subgroup membership")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).
			JSON(fiber.Map{"error": "Group is not a member of this group"})
	}

	return c.JSON(fiber.Map{"status": "removed"})
}
