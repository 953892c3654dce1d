package controllers

import (
	"context"
	"errors"
	"io"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/photostore"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

// PhotoStore persists complaint photos uploaded by citizens.
type PhotoStore interface {
	PhotoURLer
	Save(ctx context.Context, filename string, r io.Reader) (*photostore.Photo, error)
	Delete(ctx context.Context, ref string) error
}

// ComplaintController serves citizen submissions and public tracking
type ComplaintController struct {
	complaints *complaint.Service
	stats      *statistics.Service
	photos     PhotoStore
}

func NewComplaintController(complaints *complaint.Service, stats *statistics.Service, photos PhotoStore) *ComplaintController {
	return &ComplaintController{complaints: complaints, stats: stats, photos: photos}
}

// HandleCreate accepts a multipart or urlencoded submission with an optional photo
func (cc *ComplaintController) HandleCreate(c *fiber.Ctx) error {
	actor := currentActor(c)
	in := complaint.CreateInput{
		Category:    c.FormValue("category"),
		Location:    c.FormValue("location"),
		Description: c.FormValue("description"),
	}
	var err error
	if in.Latitude, err = optionalFloat(c, "latitude"); err != nil {
		return respondError(c, err)
	}
	if in.Longitude, err = optionalFloat(c, "longitude"); err != nil {
		return respondError(c, err)
	}

	// stored photos are only kept when the complaint is created
	photo, err := cc.savePhoto(c)
	if err != nil {
		return respondError(c, err)
	}
	if photo != nil {
		in.Photo = photo.Ref
		if in.Latitude == nil && in.Longitude == nil && photo.Latitude != nil {
			in.Latitude, in.Longitude = photo.Latitude, photo.Longitude
		}
	}

	created, err := cc.complaints.Create(c.UserContext(), actor, in)
	if err != nil {
		if photo != nil {
			if derr := cc.photos.Delete(c.UserContext(), photo.Ref); derr != nil {
				log.Warnf("[Complaint] Could not remove orphaned photo %s: %v", photo.Ref, derr)
			}
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newComplaintView(created, cc.photos))
}

func (cc *ComplaintController) savePhoto(c *fiber.Ctx) (*photostore.Photo, error) {
	if cc.photos == nil {
		return nil, nil
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cc.photos.Save(c.UserContext(), fh.Filename, f)
}

// HandleTrack is the public lookup by report id
func (cc *ComplaintController) HandleTrack(c *fiber.Ctx) error {
	found, err := cc.complaints.GetByReportID(c.UserContext(), currentActor(c), c.Params("reportID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newComplaintView(found, cc.photos))
}

// HandleListOwn returns the citizen's complaints with per status counts
func (cc *ComplaintController) HandleListOwn(c *fiber.Ctx) error {
	actor := currentActor(c)
	items, err := cc.complaints.ListOwn(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	counts, err := cc.stats.CitizenCounts(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"items":  newComplaintViews(items, cc.photos),
		"counts": counts,
	})
}

// HandleCategories lists the selectable complaint categories
func (cc *ComplaintController) HandleCategories(c *fiber.Ctx) error {
	return c.JSON(models.Categories)
}
