package services

import "mace-backend/models"

// defaultTemplates are used when no active template row exists for a type.
var defaultTemplates = map[string]models.EmailTemplate{
	models.TemplateRFQVendor: {
		Name:         "Vendor RFQ",
		TemplateType: models.TemplateRFQVendor,
		Subject:      "RFQ Request - {{project_name}}, RFQ ID #{{rfq_id}}",
		Body: `<p>Hello {{vendor_name}},</p>
<p>{{requester_name}} is requesting a quote for the materials below.</p>
<h3>Project</h3>
<p>Name: {{project_name}}<br>Site address: {{project_address}}<br>Needed by: {{needed_by}}<br>Notes: {{project_notes}}</p>
<h3>Materials</h3>
{{items_table}}
{{file_links}}
<p>Please submit your pricing and lead times here: <a href="{{link}}">{{link}}</a></p>
<p>This link expires in 7 days.</p>`,
	},
	models.TemplateAwardAccess: {
		Name:         "Award access",
		TemplateType: models.TemplateAwardAccess,
		Subject:      "RFQ Award Access - RFQ ID #{{rfq_id}}",
		Body: `<p>Hello {{requester_name}},</p>
<p>Your RFQ #{{rfq_id}} for {{project_name}} was sent to vendors.</p>
<p>Review quotes and award items as they arrive: <a href="{{link}}">{{link}}</a></p>
<p>This link expires in 7 days.</p>`,
	},
	models.TemplateReplyConfirmation: {
		Name:         "Reply confirmation",
		TemplateType: models.TemplateReplyConfirmation,
		Subject:      "Reply Confirmation - RFQ ID #{{rfq_id}}",
		Body: `<p>Hello {{vendor_name}},</p>
<p>We received your quote for RFQ #{{rfq_id}} (reply {{reply_id}}).</p>
{{items_table}}
<p>Quoted total: {{total}}</p>
<p>Thank you.</p>`,
	},
	models.TemplateVendorAward: {
		Name:         "Vendor award notification",
		TemplateType: models.TemplateVendorAward,
		Subject:      "You've Been Awarded an Item for RFQ #{{rfq_id}}",
		Body: `<p>Hello {{vendor_name}},</p>
<p>Your quote for <strong>{{item_name}}</strong> on RFQ #{{rfq_id}} was awarded.</p>
<h3>Project</h3>
<p>Name: {{project_name}}<br>Site address: {{project_address}}<br>Needed by: {{needed_by}}</p>
<h3>Buyer</h3>
<p>{{requester_name}}<br>{{requester_email}}<br>{{requester_phone}}</p>
<p>The buyer will contact you to finalize the order.</p>`,
	},
	models.TemplateRequesterAward: {
		Name:         "Requester award confirmation",
		TemplateType: models.TemplateRequesterAward,
		Subject:      "You Have Awarded {{vendor_name}} for RFQ #{{rfq_id}}",
		Body: `<p>Hello {{requester_name}},</p>
<p>You awarded <strong>{{item_name}}</strong> on RFQ #{{rfq_id}} to {{vendor_name}}.</p>
<p>Vendor contact: {{vendor_email}}</p>
<p>Back to the award page: <a href="{{link}}">{{link}}</a></p>`,
	},
}
