package prompt

import "thumbnail_studio/core"

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Vehicles: []Vehicle{
			{core.VehicleRyker, "Can-Am Ryker three-wheel motorcycle with aggressive sporty design"},
			{core.VehicleSpyderF3, "Can-Am Spyder F3 three-wheel motorcycle with Y-frame architecture and sporty stance"},
			{core.VehicleSpyderRT, "Can-Am Spyder RT three-wheel touring motorcycle with comfortable seating and premium features"},
			{core.VehicleSlingshot, "Polaris Slingshot three-wheel open-air roadster with side-by-side seating"},
		},
		Mods: []Mod{
			{"underglow", "Underglow Lighting"},
			{"halo_lights", "Halo Headlights"},
			{"custom_wheels", "Aftermarket Wheels"},
			{"sport_exhaust", "Performance Exhaust"},
			{"windshield", "Touring Windshield"},
			{"custom_seats", "Custom Stitch Seats"},
			{"audio_system", "Premium Audio System"},
			{"wrap_decal", "Custom Wrap/Graphics"},
		},
		Modules: []Module{
			{"motion-blur", "Motion Blur", CategoryMotion, "dynamic motion blur, speed lines, sense of velocity", "Adds motion blur and speed effects"},
			{"high-speed", "High Speed", CategoryMotion, "high speed action, fast movement, dynamic energy", "Emphasizes speed and action"},
			{"drifting", "Drifting", CategoryMotion, "drifting with tire smoke, controlled slide, aggressive cornering", "Adds drifting effects"},
			{"static-power", "Static Power", CategoryMotion, "powerful stance, stationary but aggressive, ready to launch", "Powerful but still"},

			{"golden-hour", "Golden Hour", CategoryLighting, "golden hour lighting, warm sunset glow, dramatic backlighting", "Warm sunset lighting"},
			{"studio-lighting", "Studio Lighting", CategoryLighting, "professional studio lighting, rim lights, key light with fill", "Professional studio setup"},
			{"dramatic-shadows", "Dramatic Shadows", CategoryLighting, "high contrast dramatic shadows, moody lighting, chiaroscuro", "High contrast shadows"},
			{"neon-glow", "Neon Glow", CategoryLighting, "neon lights, vibrant glow, electric atmosphere, cyberpunk lighting", "Neon and glow effects"},

			{"low-angle", "Low Angle Hero", CategoryAngle, "low angle hero shot, dramatic perspective, looking up at vehicle", "Dramatic low angle"},
			{"three-quarter", "3/4 View", CategoryAngle, "three-quarter view, dynamic angle, showing front and side", "Classic 3/4 perspective"},
			{"aerial-view", "Aerial View", CategoryAngle, "aerial view, top-down perspective, bird's eye view", "Overhead shot"},
			{"action-tracking", "Action Tracking", CategoryAngle, "dynamic tracking shot, following the action, motion camera", "Following the movement"},

			{"hyperrealistic", "Hyperrealistic", CategoryQuality, "hyperrealistic 8K photography, extreme detail, photorealistic", "Maximum realism"},
			{"sharp-focus", "Sharp Focus", CategoryQuality, "tack sharp focus on subject, crystal clear details, no blur", "Ultra sharp vehicle"},
			{"bokeh-background", "Bokeh Background", CategoryQuality, "sharp foreground with soft bokeh background, depth of field", "Blurred background"},
			{"cinematic-grain", "Cinematic Grain", CategoryQuality, "cinematic film grain, professional movie aesthetic", "Film-like quality"},

			{"magazine-cover", "Magazine Cover", CategoryStyle, "magazine cover quality, professional editorial photography", "Editorial style"},
			{"epic-cinematic", "Epic Cinematic", CategoryStyle, "epic cinematic composition, movie poster aesthetic, dramatic", "Movie poster feel"},
			{"unreal-engine", "Unreal Engine", CategoryStyle, "Unreal Engine 5 render quality, CGI perfection, ray tracing", "Video game quality"},
			{"gta-style", "GTA Style", CategoryStyle, "GTA loading screen style, stylized realism, saturated colors", "Grand Theft Auto look"},

			{"explosive", "Explosive", CategoryAtmosphere, "explosion in background, dramatic fire effects, action movie", "Add explosions"},
			{"rain-wet", "Rain & Wet", CategoryAtmosphere, "wet surface reflections, rain atmosphere, dramatic weather", "Wet and rainy"},
			{"dust-particles", "Dust & Particles", CategoryAtmosphere, "atmospheric dust particles, light rays through mist", "Atmospheric particles"},
			{"smoke-fog", "Smoke & Fog", CategoryAtmosphere, "dramatic smoke and fog, atmospheric haze, moody environment", "Fog effects"},
		},
		Scenes: []Scene{
			{"mountain-pass", "Mountain Pass", "Winding mountain road with scenic views", "winding mountain pass road, scenic alpine curves, dramatic elevation, mountain backdrop", SceneRoad},
			{"coastal-highway", "Coastal Highway", "Pacific coast highway with ocean views", "coastal highway along ocean, dramatic cliffs, blue water, palm trees, sunset sky", SceneRoad},
			{"desert-highway", "Desert Highway", "Empty desert road with endless horizon", "empty desert highway, endless horizon, heat haze, dramatic sky, southwestern landscape", SceneRoad},
			{"forest-road", "Forest Road", "Tree-lined road through dense forest", "tree-lined forest road, dappled sunlight, green canopy, winding path through woods", SceneRoad},
			{"canyon-road", "Canyon Road", "Road through dramatic red rock canyons", "red rock canyon road, dramatic geological formations, southwestern desert, towering cliffs", SceneRoad},

			{"city-night", "City Night", "Downtown city at night with lights", "neon-lit city streets at night, glowing buildings, urban downtown, light trails", SceneUrban},
			{"industrial", "Industrial District", "Gritty industrial warehouse area", "industrial warehouse district, urban grit, concrete and steel, dramatic shadows", SceneUrban},
			{"parking-garage", "Parking Garage", "Underground parking structure", "underground parking garage, concrete pillars, dramatic lighting, urban atmosphere", SceneUrban},
			{"city-overlook", "City Overlook", "Hilltop overlooking the city", "city overlook viewpoint, panoramic cityscape, elevated perspective, dramatic vista", SceneUrban},

			{"white-studio", "White Studio", "Clean white studio background", "professional white studio background, clean minimalist, seamless backdrop, studio lighting", SceneStudio},
			{"black-studio", "Black Studio", "Dramatic black studio background", "dramatic black studio background, moody atmosphere, rim lighting, professional setup", SceneStudio},
			{"gradient-studio", "Gradient Studio", "Modern gradient studio background", "modern gradient studio background, vibrant color fade, contemporary aesthetic", SceneStudio},
			{"showroom", "Showroom", "Luxury automotive showroom", "luxury automotive showroom, polished floors, spotlights, premium display space", SceneStudio},
			{"green-screen", "Green Screen", "Pure chroma green background", "pure chroma green background, solid #00b140 background, even lighting, no shadows, chroma key ready", SceneStudio},

			{"sunset-field", "Sunset Field", "Open field at golden hour", "open field at golden hour sunset, warm glow, dramatic sky, natural landscape", SceneNature},
			{"lakeside", "Lakeside", "Scenic lake with mountain reflection", "scenic lakeside setting, mountain reflections, calm water, pristine nature", SceneNature},
			{"autumn-road", "Autumn Road", "Road lined with fall colors", "autumn road with fall colors, golden leaves, seasonal beauty, warm tones", SceneNature},

			{"race-track", "Race Track", "Professional racing circuit", "professional race track circuit, racing stripes, grandstands, performance venue", SceneTrack},
			{"drift-pad", "Drift Pad", "Dedicated drifting area", "drift pad with tire marks, burnout area, performance driving surface", SceneTrack},
			{"drag-strip", "Drag Strip", "Quarter mile drag racing strip", "drag racing strip, starting line, straight acceleration track, racing venue", SceneTrack},
		},
		Negatives: []string{
			"warped wheels", "deformed vehicle", "extra wheels", "wrong number of wheels",
			"smudged text", "blurry faces", "extra people", "distorted background",
			"fake logos", "wrong vehicle type", "alien headlights", "unrealistic proportions",
			"bad anatomy", "low quality", "pixelated", "watermark",
			"text artifacts", "duplicate elements", "merged objects", "floating parts",
		},
		Presets: Presets{
			Action: []string{
				"Dynamic high-speed action shot",
				"Drifting through sharp corners",
				"Accelerating down straight highway",
				"Parked in aggressive stance",
				"Leaning into tight turn",
				"Launching from standstill with tire smoke",
				"Carving through mountain switchbacks",
				"Cruising at sunset",
				"Racing along coastal highway",
				"Wheelie (front wheel lift)",
			},
			Setting: []string{
				"Winding mountain pass at golden hour",
				"Neon-lit city streets at night",
				"Empty desert highway with dramatic sky",
				"Professional studio with clean background",
				"Tropical coastal road with palm trees",
				"Industrial warehouse district",
				"Mountain summit overlook",
				"Race track with grandstands",
				"Underground parking garage",
				"Scenic overlook with panoramic views",
			},
			Style: []string{
				"Hyperrealistic 8K photography",
				"Cinematic film grain aesthetic",
				"Vibrant saturated colors",
				"High contrast dramatic tones",
				"Unreal Engine 5 render quality",
				"Magazine cover professional photography",
				"GoPro wide-angle perspective",
				"Drone aerial shot",
				"Low-angle hero shot",
				"Motion blur with sharp subject",
			},
			Lighting: []string{
				"Golden hour warm lighting",
				"Dramatic sunset backlight",
				"Moody overcast atmosphere",
				"Bright midday sun with harsh shadows",
				"Blue hour twilight ambiance",
				"Neon and artificial city lights",
				"Studio lighting with rim light",
				"Dramatic storm clouds with sun rays",
				"Night photography with light trails",
				"Soft diffused lighting",
			},
		},
	}
}
