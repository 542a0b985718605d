package cloud

import (
	"context"
	"net/http"

	ims "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ims/v2"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ims/v2/model"
)

// Image is a private image.
type Image struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	OSVersion   string `json:"__os_version"`
	ImageType   string `json:"__imagetype"`
	MinDisk     int    `json:"min_disk"`
	Visibility  string `json:"visibility"`
	Description string `json:"__description"`
	CreatedAt   string `json:"created_at"`
}

// CreateImage holds the parameters for both image kinds.
type CreateImage struct {
	Name        string `json:"name"`
	InstanceID  string `json:"instance_id"`
	Description string `json:"description,omitempty"`
}

// ImageJob is the asynchronous result of an image create.
type ImageJob struct {
	JobID string `json:"job_id"`
}

// ImageAPI wraps the image service.
type ImageAPI struct {
	c   *Client
	sdk *ims.ImsClient
}

// Images wraps an IMS service client.
func Images(c *Client) ImageAPI { return ImageAPI{c: c, sdk: ims.NewImsClient(c.hc)} }

func (in CreateImage) check() error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	return checkID("instance id", in.InstanceID)
}

// CreateSystemImage images the system disk of a server.
func (a ImageAPI) CreateSystemImage(ctx context.Context, in CreateImage) (ImageJob, error) {
	if err := in.check(); err != nil {
		return ImageJob{}, err
	}
	req := &model.CreateImageRequest{}
	if err := withBody(req, in); err != nil {
		return ImageJob{}, err
	}
	var out ImageJob
	err := a.c.do(ctx, "CreateImage", func() (any, error) { return a.sdk.CreateImage(req) }, &out)
	return out, err
}

// CreateWholeImage images a server with all of its disks.
func (a ImageAPI) CreateWholeImage(ctx context.Context, in CreateImage) (ImageJob, error) {
	if err := in.check(); err != nil {
		return ImageJob{}, err
	}
	req := &model.CreateWholeImageRequest{}
	if err := withBody(req, in); err != nil {
		return ImageJob{}, err
	}
	var out ImageJob
	err := a.c.do(ctx, "CreateWholeImage", func() (any, error) { return a.sdk.CreateWholeImage(req) }, &out)
	return out, err
}

// ListPrivate lists the account's private images.
func (a ImageAPI) ListPrivate(ctx context.Context, n int) ([]Image, error) {
	private := model.GetListImagesRequestImagetypeEnum().PRIVATE
	return a.list(ctx, &model.ListImagesRequest{Imagetype: &private, Limit: limit(n)})
}

// Show fetches one image.
func (a ImageAPI) Show(ctx context.Context, id string) (Image, error) {
	if err := checkID("image id", id); err != nil {
		return Image{}, err
	}
	images, err := a.list(ctx, &model.ListImagesRequest{Id: &id})
	if err != nil {
		return Image{}, err
	}
	if len(images) == 0 {
		return Image{}, &Error{Status: http.StatusNotFound, ErrorCode: "IMS.0404", Message: "Image " + id + " not found"}
	}
	return images[0], nil
}

func (a ImageAPI) list(ctx context.Context, req *model.ListImagesRequest) ([]Image, error) {
	var out struct {
		Images []Image `json:"images"`
	}
	err := a.c.do(ctx, "ListImages", func() (any, error) { return a.sdk.ListImages(req) }, &out)
	return out.Images, err
}
